package photo

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// DefaultMaxBytes is the default limit for a decoded photo.
const DefaultMaxBytes = 512 * 1024

// URLPrefix is the path under which stored photos are served.
const URLPrefix = "/photos/"

var allowedTypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
	"image/bmp",
}

var namePattern = regexp.MustCompile(`^photo_[0-9a-f]{8}\.[a-z0-9]{2,5}$`)

// Service decodes, checks and stores photos.
type Service struct {
	store    ObjectStore
	maxBytes int
	validate *validator.Validate
	newID    func() string
}

// NewService creates a photo service backed by store.
func NewService(store ObjectStore, maxBytes int) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{
		store:    store,
		maxBytes: maxBytes,
		validate: validator.New(),
		newID:    func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:8] },
	}
}

// Save stores the image carried by a data URL and returns its public URL.
func (s *Service) Save(ctx context.Context, req SavePhotoRequest) (SavePhotoResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return SavePhotoResponse{}, fmt.Errorf("%w: %v", ErrInvalidPhoto, err)
	}

	data, err := s.decode(req.Photo)
	if err != nil {
		return SavePhotoResponse{}, err
	}

	mt := mimetype.Detect(data)
	contentType := strings.SplitN(mt.String(), ";", 2)[0]
	if !lo.Contains(allowedTypes, contentType) {
		return SavePhotoResponse{}, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	name := "photo_" + s.newID() + mt.Extension()
	info, err := s.store.Put(ctx, name, data, contentType)
	if err != nil {
		return SavePhotoResponse{}, fmt.Errorf("failed to save photo: %w", err)
	}

	return SavePhotoResponse{
		PhotoURL:    URLPrefix + name,
		PhotoName:   name,
		ContentType: contentType,
		Size:        int64(info.Size),
	}, nil
}

// Get loads a stored photo by name.
func (s *Service) Get(ctx context.Context, name string) ([]byte, *ObjectInfo, error) {
	if !namePattern.MatchString(name) {
		return nil, nil, ErrInvalidName
	}
	data, info, err := s.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, ErrPhotoNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to load photo: %w", err)
	}
	return data, info, nil
}

// decode extracts the payload of a base64 data URL.
func (s *Service) decode(dataURL string) ([]byte, error) {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, ErrInvalidPhoto
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > s.maxBytes+2 {
		return nil, ErrPhotoTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPhoto, err)
	}
	if len(data) == 0 {
		return nil, ErrInvalidPhoto
	}
	if len(data) > s.maxBytes {
		return nil, ErrPhotoTooLarge
	}
	return data, nil
}

// isClientError reports whether err was caused by the request rather than storage.
func isClientError(err error) bool {
	return errors.Is(err, ErrInvalidPhoto) ||
		errors.Is(err, ErrPhotoTooLarge) ||
		errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrInvalidName)
}
