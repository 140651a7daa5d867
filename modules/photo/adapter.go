package photo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// PhotoPort defines the photo operations available to other modules.
type PhotoPort interface {
	SavePhoto(ctx context.Context, dataURL string) (*SavePhotoResponse, error)
	GetPhoto(ctx context.Context, name string) (*GetPhotoResponse, error)
}

// photoAdapter wraps ServiceContainer for type-safe cross-module communication.
type photoAdapter struct {
	container mono.ServiceContainer
}

// NewPhotoAdapter creates a new adapter for photo services.
func NewPhotoAdapter(container mono.ServiceContainer) PhotoPort {
	if container == nil {
		panic("photo adapter requires non-nil ServiceContainer")
	}
	return &photoAdapter{container: container}
}

// SavePhoto stores a data URL image via the save-photo service.
func (a *photoAdapter) SavePhoto(ctx context.Context, dataURL string) (*SavePhotoResponse, error) {
	req := SavePhotoRequest{Photo: dataURL}
	var resp SavePhotoResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceSavePhoto,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceSavePhoto, err)
	}
	return &resp, nil
}

// GetPhoto loads a photo by name via the get-photo service.
func (a *photoAdapter) GetPhoto(ctx context.Context, name string) (*GetPhotoResponse, error) {
	req := GetPhotoRequest{Name: name}
	var resp GetPhotoResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceGetPhoto,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceGetPhoto, err)
	}
	return &resp, nil
}
