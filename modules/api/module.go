package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	domain "github.com/example/chatnest/domain/chat"
	"github.com/example/chatnest/modules/broadcast"
	"github.com/example/chatnest/modules/photo"
)

// ChatView is the read side of the chat hub used by the HTTP API.
type ChatView interface {
	Users() []domain.PresenceEntry
	History(n int) []domain.Message
	HistoryLimit() int
	MessageCount() int
	UserCount() int
	ConnectionCount() int
}

// StatsView provides chat activity counters.
type StatsView interface {
	Snapshot() broadcast.StatsSnapshot
}

// WebSocketHandler serves one upgraded connection.
type WebSocketHandler interface {
	Serve(conn *websocket.Conn)
}

// Settings configures the HTTP server.
type Settings struct {
	Port               string
	CORSAllowedOrigins string
	StaticDir          string
	MaxPhotoBytes      int
	HistoryReplay      int
}

// APIModule is the HTTP API module with WebSocket support.
type APIModule struct {
	app      *fiber.App
	photo    photo.PhotoPort
	chat     ChatView
	stats    StatsView
	ws       WebSocketHandler
	settings Settings
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(settings Settings, logger types.Logger) *APIModule {
	if settings.Port == "" {
		settings.Port = "3000"
	}
	if settings.CORSAllowedOrigins == "" {
		settings.CORSAllowedOrigins = "*"
	}
	if settings.MaxPhotoBytes <= 0 {
		settings.MaxPhotoBytes = photo.DefaultMaxBytes
	}
	if settings.HistoryReplay <= 0 {
		settings.HistoryReplay = domain.DefaultHistoryReplay
	}
	return &APIModule{
		settings: settings,
		logger:   logger,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"photo"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "photo":
		m.photo = photo.NewPhotoAdapter(container)
	}
}

// SetChat sets the chat hub (called from main.go).
func (m *APIModule) SetChat(chat ChatView) {
	m.chat = chat
}

// SetStats sets the activity counters (called from main.go).
func (m *APIModule) SetStats(stats StatsView) {
	m.stats = stats
}

// SetWebSocketHandler sets the handler for /ws (called from main.go).
func (m *APIModule) SetWebSocketHandler(ws WebSocketHandler) {
	m.ws = ws
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.photo == nil {
		return fmt.Errorf("photo adapter dependency not set")
	}
	if m.chat == nil {
		return fmt.Errorf("chat hub dependency not set")
	}
	if m.ws == nil {
		return fmt.Errorf("websocket handler dependency not set")
	}

	m.app = m.buildApp()

	go func() {
		if err := m.app.Listen(":" + m.settings.Port); err != nil {
			m.logger.Error("HTTP server error", "error", err)
		}
	}()

	m.logger.Info("HTTP server started", "port", m.settings.Port)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	details := map[string]any{
		"port": m.settings.Port,
	}
	if m.chat != nil {
		details["connections"] = m.chat.ConnectionCount()
	}
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: details,
	}
}

// buildApp creates the Fiber app with middleware and routes.
func (m *APIModule) buildApp() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
		// A data URL is about 4/3 of the decoded image.
		BodyLimit: m.settings.MaxPhotoBytes*2 + 4096,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Next: func(c *fiber.Ctx) bool {
			return websocket.IsWebSocketUpgrade(c)
		},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: m.settings.CORSAllowedOrigins,
		AllowMethods: strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions}, ","),
	}))

	m.setupRoutes(app)
	return app
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
