package forms

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultPreviewWidth is the widest preview rendered for a selected image.
	DefaultPreviewWidth = 480
	previewQuality      = 80
	// maxPreviewPixels caps width*height as declared in the image header.
	maxPreviewPixels = 16 << 20
)

var errImageTooLarge = errors.New("image dimensions too large to preview")

// PreviewDataURL renders f as a data URL suitable for an <img> src. Images
// wider than maxWidth are scaled down and re-encoded as JPEG; files that do
// not decode as images, or declare more pixels than maxPreviewPixels, are
// embedded as-is.
func PreviewDataURL(f *File, maxWidth int) string {
	if maxWidth <= 0 {
		maxWidth = DefaultPreviewWidth
	}
	data, err := scaleImage(f.Data, maxWidth)
	if err != nil {
		return dataURL(f.ContentType, f.Data)
	}
	return dataURL("image/jpeg", data)
}

// scaleImage decodes src, resizes it to at most maxWidth pixels wide keeping
// the aspect ratio, and encodes it as JPEG.
func scaleImage(src []byte, maxWidth int) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image config: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxPreviewPixels {
		return nil, fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, errImageTooLarge)
	}

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxWidth {
		newH := h * maxWidth / w
		if newH < 1 {
			newH = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: previewQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func dataURL(contentType string, data []byte) string {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
