package imagefile

import (
	"errors"
	"mime"
	"strings"
)

// MaxImageSize is the largest accepted upload (5MB).
const MaxImageSize = 5 * 1024 * 1024

// SupportedMIMETypes lists the image formats the generation API accepts from us.
var SupportedMIMETypes = []string{"image/jpeg", "image/png", "image/webp"}

var (
	ErrTooLarge          = errors.New("image exceeds maximum size")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// User-facing rejection messages.
const (
	MsgTooLarge          = "El archivo es demasiado grande. El máximo es 5MB."
	MsgUnsupportedFormat = "Formato de archivo no soportado. Usa JPG, PNG o WebP."
)

// Image is an uploaded image held in memory for the duration of a session.
type Image struct {
	Data     []byte
	MIMEType string
	Size     int64
	Name     string // Original file name if known
}

// New validates data and its declared MIME type and returns an Image.
func New(data []byte, mimeType, name string) (*Image, error) {
	size := int64(len(data))
	if err := Validate(size, mimeType); err != nil {
		return nil, err
	}
	return &Image{
		Data:     data,
		MIMEType: NormalizeMIME(mimeType),
		Size:     size,
		Name:     name,
	}, nil
}

// Validate checks a candidate file against MaxImageSize and SupportedMIMETypes.
// Size is checked first so an oversize file always reports ErrTooLarge.
func Validate(size int64, mimeType string) error {
	if size > MaxImageSize {
		return ErrTooLarge
	}
	if !IsSupported(mimeType) {
		return ErrUnsupportedFormat
	}
	return nil
}

// IsSupported reports whether mimeType is in the allow-list.
func IsSupported(mimeType string) bool {
	m := NormalizeMIME(mimeType)
	for _, s := range SupportedMIMETypes {
		if m == s {
			return true
		}
	}
	return false
}

// NormalizeMIME lowercases a MIME type and drops any parameters.
func NormalizeMIME(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mediaType
	}
	return strings.ToLower(mimeType)
}

// UserMessage maps a validation error to the message shown to the user.
// Other errors are returned verbatim.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTooLarge):
		return MsgTooLarge
	case errors.Is(err, ErrUnsupportedFormat):
		return MsgUnsupportedFormat
	default:
		return err.Error()
	}
}
