package photo

// Service names registered in the photo module's service container.
const (
	ServiceSavePhoto = "save-photo"
	ServiceGetPhoto  = "get-photo"
)

// SavePhotoRequest carries an image as a base64 data URL.
type SavePhotoRequest struct {
	Photo string `json:"photo" validate:"required,datauri"`
}

// SavePhotoResponse describes a stored photo. Error is set, and the other
// fields are empty, when the upload was rejected.
type SavePhotoResponse struct {
	PhotoURL    string `json:"photo_url,omitempty"`
	PhotoName   string `json:"photo_name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Error       string `json:"error,omitempty"`
}

// GetPhotoRequest asks for a stored photo by name.
type GetPhotoRequest struct {
	Name string `json:"name" validate:"required"`
}

// GetPhotoResponse returns a stored photo. Found is false when no photo
// with the requested name exists.
type GetPhotoResponse struct {
	Found       bool   `json:"found"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Data        []byte `json:"data,omitempty"`
}
