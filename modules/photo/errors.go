package photo

import "errors"

var (
	ErrInvalidPhoto       = errors.New("photo must be a base64 encoded data URL")
	ErrPhotoTooLarge      = errors.New("photo exceeds maximum size")
	ErrUnsupportedType    = errors.New("unsupported image type")
	ErrInvalidName        = errors.New("invalid photo name")
	ErrPhotoNotFound      = errors.New("photo not found")
	ErrStorageUnavailable = errors.New("photo storage unavailable")
)
