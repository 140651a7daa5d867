package api

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	app.Get("/health", m.healthHandler)

	// WebSocket endpoint
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		m.ws.Serve(conn)
	}))

	// Photo upload and download
	app.Post("/api/save_photo", m.savePhoto)
	app.Get("/photos/:name", m.getPhoto)

	// REST API v1
	v1 := app.Group("/api/v1")
	v1.Get("/users", m.listUsers)
	v1.Get("/history", m.getHistory)
	v1.Get("/stats", m.getStats)

	if m.settings.StaticDir != "" {
		app.Static("/", m.settings.StaticDir)
	}
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":      "api",
			"online":      m.chat.UserCount(),
			"connections": m.chat.ConnectionCount(),
		},
	})
}

// savePhoto handles POST /api/save_photo.
func (m *APIModule) savePhoto(c *fiber.Ctx) error {
	var req SavePhotoRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(SavePhotoResponse{
			Success: false,
			Error:   "Invalid request body",
		})
	}
	if req.Photo == "" {
		return c.Status(fiber.StatusBadRequest).JSON(SavePhotoResponse{
			Success: false,
			Error:   "No photo provided",
		})
	}

	resp, err := m.photo.SavePhoto(c.UserContext(), req.Photo)
	if err != nil {
		m.logger.Error("Failed to save photo", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(SavePhotoResponse{
			Success: false,
			Error:   "Failed to save photo",
		})
	}
	if resp.Error != "" {
		return c.Status(fiber.StatusBadRequest).JSON(SavePhotoResponse{
			Success: false,
			Error:   resp.Error,
		})
	}

	return c.JSON(SavePhotoResponse{
		Success:   true,
		PhotoURL:  resp.PhotoURL,
		PhotoName: resp.PhotoName,
	})
}

// getPhoto handles GET /photos/:name.
func (m *APIModule) getPhoto(c *fiber.Ctx) error {
	name := c.Params("name")

	resp, err := m.photo.GetPhoto(c.UserContext(), name)
	if err != nil {
		m.logger.Error("Failed to load photo", "name", name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "photo_unavailable",
			Message: "Failed to load photo",
		})
	}
	if !resp.Found {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Photo not found",
		})
	}

	c.Set(fiber.HeaderContentType, resp.ContentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400, immutable")
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	return c.Send(resp.Data)
}

// listUsers handles GET /api/v1/users.
func (m *APIModule) listUsers(c *fiber.Ctx) error {
	users := m.chat.Users()
	return c.JSON(UsersResponse{
		Users: users,
		Count: len(users),
	})
}

// getHistory handles GET /api/v1/history.
func (m *APIModule) getHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", m.settings.HistoryReplay)
	if limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_limit",
			Message: "limit must not be negative",
		})
	}
	limit = min(limit, m.chat.HistoryLimit())

	messages := m.chat.History(limit)
	return c.JSON(HistoryResponse{
		Messages: messages,
		Count:    len(messages),
	})
}

// getStats handles GET /api/v1/stats.
func (m *APIModule) getStats(c *fiber.Ctx) error {
	resp := StatsResponse{
		Connections: m.chat.ConnectionCount(),
		Online:      m.chat.UserCount(),
		Stored:      m.chat.MessageCount(),
	}
	if m.stats != nil {
		resp.StatsSnapshot = m.stats.Snapshot()
	}
	return c.JSON(resp)
}
