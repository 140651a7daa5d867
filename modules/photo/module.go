package photo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// PhotoModule stores chat photos in a JetStream object store and exposes
// them through request-reply services.
type PhotoModule struct {
	store    *JetStreamObjectStore
	service  *Service
	natsURL  string
	bucket   string
	maxBytes int
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*PhotoModule)(nil)
var _ mono.ServiceProviderModule = (*PhotoModule)(nil)
var _ mono.HealthCheckableModule = (*PhotoModule)(nil)

// NewModule creates a new PhotoModule.
func NewModule(natsURL, bucket string, maxBytes int, logger types.Logger) *PhotoModule {
	return &PhotoModule{
		natsURL:  natsURL,
		bucket:   bucket,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Name returns the module name.
func (m *PhotoModule) Name() string {
	return "photo"
}

// RegisterServices registers request-reply services in the service container.
func (m *PhotoModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceSavePhoto,
		json.Unmarshal,
		json.Marshal,
		m.savePhoto,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceSavePhoto, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceGetPhoto,
		json.Unmarshal,
		json.Marshal,
		m.getPhoto,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetPhoto, err)
	}

	m.logger.Info("Registered services", "services", ServiceSavePhoto+", "+ServiceGetPhoto)
	return nil
}

// Start connects to NATS JetStream and opens the photo bucket.
func (m *PhotoModule) Start(ctx context.Context) error {
	store, err := NewJetStreamObjectStore(m.natsURL, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to create object store: %w", err)
	}

	if err := store.Init(ctx); err != nil {
		store.Close()
		return fmt.Errorf("failed to initialize object store: %w", err)
	}

	m.store = store
	m.service = NewService(store, m.maxBytes)
	m.logger.Info("Photo module started", "natsURL", m.natsURL, "bucket", m.bucket)
	return nil
}

// Stop closes the NATS connection.
func (m *PhotoModule) Stop(_ context.Context) error {
	if m.store != nil {
		m.store.Close()
	}
	m.logger.Info("Photo module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *PhotoModule) Health(_ context.Context) mono.HealthStatus {
	healthy := m.store != nil && m.store.IsConnected()
	message := "connected"
	if !healthy {
		message = "disconnected"
	}
	return mono.HealthStatus{
		Healthy: healthy,
		Message: message,
		Details: map[string]any{
			"nats_url": m.natsURL,
			"bucket":   m.bucket,
		},
	}
}

// savePhoto handles the save-photo service request. Rejected uploads are
// reported in the response so the caller can tell them from storage failures.
func (m *PhotoModule) savePhoto(ctx context.Context, req SavePhotoRequest, _ *mono.Msg) (SavePhotoResponse, error) {
	if m.service == nil {
		return SavePhotoResponse{}, ErrStorageUnavailable
	}
	resp, err := m.service.Save(ctx, req)
	if err != nil {
		if isClientError(err) {
			m.logger.Debug("Photo rejected", "error", err)
			return SavePhotoResponse{Error: err.Error()}, nil
		}
		m.logger.Error("Failed to save photo", "error", err)
		return SavePhotoResponse{}, err
	}
	m.logger.Info("Photo saved", "name", resp.PhotoName, "size", resp.Size, "contentType", resp.ContentType)
	return resp, nil
}

// getPhoto handles the get-photo service request.
func (m *PhotoModule) getPhoto(ctx context.Context, req GetPhotoRequest, _ *mono.Msg) (GetPhotoResponse, error) {
	if m.service == nil {
		return GetPhotoResponse{}, ErrStorageUnavailable
	}
	data, info, err := m.service.Get(ctx, req.Name)
	if err != nil {
		if errors.Is(err, ErrPhotoNotFound) || errors.Is(err, ErrInvalidName) {
			return GetPhotoResponse{Found: false, Name: req.Name}, nil
		}
		return GetPhotoResponse{}, err
	}
	return GetPhotoResponse{
		Found:       true,
		Name:        info.Name,
		ContentType: info.ContentType,
		Size:        int64(info.Size),
		Data:        data,
	}, nil
}
