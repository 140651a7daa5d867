package api

import (
	domain "github.com/example/chatnest/domain/chat"
	"github.com/example/chatnest/modules/broadcast"
)

// SavePhotoRequest is the body of POST /api/save_photo.
type SavePhotoRequest struct {
	Photo string `json:"photo"`
}

// SavePhotoResponse is the response of POST /api/save_photo.
type SavePhotoResponse struct {
	Success   bool   `json:"success"`
	PhotoURL  string `json:"photo_url,omitempty"`
	PhotoName string `json:"photo_name,omitempty"`
	Error     string `json:"error,omitempty"`
}

// UsersResponse is the API response for the presence list.
type UsersResponse struct {
	Users []domain.PresenceEntry `json:"users"`
	Count int                    `json:"count"`
}

// HistoryResponse is the API response for message history.
type HistoryResponse struct {
	Messages []domain.Message `json:"messages"`
	Count    int              `json:"count"`
}

// StatsResponse is the API response for chat activity.
type StatsResponse struct {
	broadcast.StatsSnapshot
	Connections int `json:"connections"`
	Online      int `json:"online"`
	Stored      int `json:"stored_messages"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
