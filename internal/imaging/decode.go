// Package imaging decodes uploaded image bytes into the dimensions the
// detector and wire schemas need, adapted from an internal/utils/imaging
// package's ProcessImageStream/ProcessImageBytes shape, generalized from
// thumbnail generation to inbound-request validation.
package imaging

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/h2non/bimg"
)

var allowedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Decoded carries the dimensions and content type of a validated image
// upload, ready to be wrapped in a detector.Image.
type Decoded struct {
	Width       int
	Height      int
	ContentType string
}

// Decode validates that data is an image of a supported type and returns its
// pixel dimensions. It never re-encodes the image: the detector package
// treats image bytes as opaque and passes them straight through to the
// model boundary — decoding pixels is the model's concern, not the
// transport's.
func Decode(data []byte) (Decoded, error) {
	if len(data) == 0 {
		return Decoded{}, fmt.Errorf("empty image payload")
	}

	mime := mimetype.Detect(data)
	contentType := mime.String()
	if !allowedMIMETypes[contentType] {
		return Decoded{}, fmt.Errorf("unsupported image content type %q", contentType)
	}

	size, err := bimg.NewImage(data).Size()
	if err != nil {
		return Decoded{}, fmt.Errorf("read image dimensions: %w", err)
	}
	if size.Width <= 0 || size.Height <= 0 {
		return Decoded{}, fmt.Errorf("invalid image dimensions %dx%d", size.Width, size.Height)
	}

	return Decoded{Width: size.Width, Height: size.Height, ContentType: contentType}, nil
}
