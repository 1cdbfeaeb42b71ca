package acquisition

import (
	"encoding/base64"
	"strings"
)

// Image is a single still image ready for submission.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// IsImage reports whether the declared type is an image type.
func (i Image) IsImage() bool {
	return strings.HasPrefix(i.ContentType, "image/")
}

// DataURL renders the image as a data URL for an inline preview. The preview
// belongs to the response that shows it and is never stored.
func (i Image) DataURL() string {
	return "data:" + i.ContentType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// CaptureFunc receives the one image produced by a user action. Both the
// upload path and the camera path deliver through it.
type CaptureFunc func(Image)
