package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"net/http"

	"heartlink/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	imageMaxUploadBytes = 10 << 20
	imageMaxEdge        = 2048
	imageWebPQuality    = 70
)

// ImageService normalizes uploaded media before it is stored: the payload
// is validated, anything larger than 2048px on its longest edge is scaled
// down and the result is re-encoded as WebP. Stored objects therefore all
// share one format and a bounded size regardless of what the client sent.
type ImageService struct{}

// NewImageService returns a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{}
}

// Normalize reads the upload, validates it as an image and returns the
// WebP-encoded master.
func (s *ImageService) Normalize(r io.Reader) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(r, imageMaxUploadBytes+1))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if len(content) > imageMaxUploadBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", imageMaxUploadBytes>>20))
	}

	if !isAllowedImageMIME(http.DetectContentType(content)) {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}

	master := resizeToFit(decoded, imageMaxEdge, imageMaxEdge)
	encoded, err := encodeWebP(master, imageWebPQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return encoded, nil
}

func isAllowedImageMIME(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
