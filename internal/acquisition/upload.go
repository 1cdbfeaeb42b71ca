package acquisition

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
)

// Validation errors. Their text is shown to the user as-is.
var (
	ErrNoFile            = errors.New("Please select an image file")
	ErrNotImage          = errors.New("Please upload an image file")
	ErrUnsupportedFormat = errors.New("Supported formats: JPEG, JPG, PNG")
	ErrTooLarge          = errors.New("The image is too large")
)

// AcceptedExtensions is the picker filter.
var AcceptedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
}

// Upload is a user-selected or dropped file as declared by the client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Uploader validates uploads and hands accepted ones to the capture callback.
type Uploader struct {
	MaxBytes int64
}

// NewUploader returns an uploader limited to maxBytes per file (0 = unlimited).
func NewUploader(maxBytes int64) *Uploader {
	return &Uploader{MaxBytes: maxBytes}
}

// Accept validates u and, when it is acceptable, invokes onCapture once with
// the raw file before building the preview. Rejected uploads never reach the
// callback.
func (u *Uploader) Accept(upload *Upload, onCapture CaptureFunc) (string, error) {
	if upload == nil || len(upload.Data) == 0 {
		return "", ErrNoFile
	}
	if !strings.HasPrefix(upload.ContentType, "image/") {
		return "", ErrNotImage
	}
	if !AcceptedExtensions[strings.ToLower(filepath.Ext(upload.Filename))] {
		return "", ErrUnsupportedFormat
	}
	if u.MaxBytes > 0 && int64(len(upload.Data)) > u.MaxBytes {
		return "", ErrTooLarge
	}

	img := Image{
		Name:        filepath.Base(upload.Filename),
		ContentType: upload.ContentType,
		Data:        upload.Data,
	}
	if onCapture != nil {
		onCapture(img)
	}
	return img.DataURL(), nil
}

// FromMultipart reads a multipart file header into an Upload, enforcing the
// size limit while reading. A nil header yields a nil upload.
func (u *Uploader) FromMultipart(header *multipart.FileHeader) (*Upload, error) {
	if header == nil {
		return nil, nil
	}
	if u.MaxBytes > 0 && header.Size > u.MaxBytes {
		return nil, ErrTooLarge
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if u.MaxBytes > 0 {
		r = io.LimitReader(f, u.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if u.MaxBytes > 0 && int64(len(data)) > u.MaxBytes {
		return nil, ErrTooLarge
	}

	return &Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
