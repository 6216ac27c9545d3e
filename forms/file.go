package forms

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const (
	// MaxPhotoSize is the largest file the default validator accepts.
	MaxPhotoSize = 2 << 20 // 2MB
	// MaxUploadSize caps how much of a selected file is read into memory.
	MaxUploadSize = 10 << 20 // 10MB
)

// ErrFileTooLarge is returned when a selected file exceeds MaxUploadSize.
var ErrFileTooLarge = errors.New("file too large (max 10MB)")

// File is a selected file held in a form record.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the file length in bytes.
func (f *File) Size() int64 {
	return int64(len(f.Data))
}

// ReadFile reads a multipart upload into a File. The content type is always
// sniffed from the data; the client-declared type is ignored.
func ReadFile(fh *multipart.FileHeader) (*File, error) {
	if fh.Size > MaxUploadSize {
		return nil, ErrFileTooLarge
	}
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, ErrFileTooLarge
	}

	return &File{
		Name:        fh.Filename,
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}

// FileValidator checks a selected file and returns a message describing why
// it is rejected, or "" when it is acceptable.
type FileValidator interface {
	Validate(f *File) string
}

// FileValidatorFunc adapts a function to FileValidator.
type FileValidatorFunc func(f *File) string

// Validate calls fn(f).
func (fn FileValidatorFunc) Validate(f *File) string {
	return fn(f)
}

// ImageValidator accepts image files up to MaxSize bytes.
type ImageValidator struct {
	MaxSize      int64
	AllowedTypes []string
}

// NewImageValidator returns a validator for jpeg, png, gif and webp images up
// to maxSize bytes.
func NewImageValidator(maxSize int64) *ImageValidator {
	return &ImageValidator{
		MaxSize:      maxSize,
		AllowedTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
	}
}

// Validate implements FileValidator.
func (v *ImageValidator) Validate(f *File) string {
	if f == nil {
		return ""
	}
	if v.MaxSize > 0 && f.Size() > v.MaxSize {
		return fmt.Sprintf("File size should not exceed %dMB", v.MaxSize>>20)
	}
	ct := strings.ToLower(f.ContentType)
	for _, allowed := range v.AllowedTypes {
		if ct == allowed {
			return ""
		}
	}
	return "Only image files are allowed (jpg, png, gif, webp)"
}

// Selection is the outcome of a file selection: the validator message and,
// when previews are enabled, a data URL of the file.
type Selection struct {
	Message string
	Preview string
}

// FileHandler applies file selections to form records.
type FileHandler struct {
	Validator    FileValidator
	Preview      bool
	PreviewWidth int
}

// Select validates f, stores it in rec under field and renders a preview.
// A rejected file still replaces the previous selection.
func (h *FileHandler) Select(rec Record, field string, f *File) Selection {
	var sel Selection
	if h.Validator != nil {
		sel.Message = h.Validator.Validate(f)
	}
	rec.SetFile(field, f)
	if h.Preview && f != nil {
		sel.Preview = PreviewDataURL(f, h.PreviewWidth)
	}
	return sel
}
