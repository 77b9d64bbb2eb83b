// Package imaging prepares uploaded images for the embedding service:
// base64 decoding, format validation and downscaling. The heavy lifting
// (face detection, model inference) stays in the external service.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// maxDimension is the longest image side sent to the embedding service.
// Camera captures arrive far larger; detection quality is unchanged at this
// size and the upload shrinks considerably.
const maxDimension = 1024

// jpegQuality for re-encoded images.
const jpegQuality = 90

// DecodeBase64 strips an optional data-URL prefix ("data:image/...;base64,")
// and decodes the payload.
func DecodeBase64(data string) ([]byte, error) {
	if idx := strings.Index(data, ","); idx >= 0 && strings.Contains(data[:idx], "base64") {
		data = data[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image data: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	return raw, nil
}

// Normalize validates that the payload decodes as an image and downscales
// anything larger than maxDimension, re-encoding as JPEG. Images already
// small enough pass through unchanged, preserving their original encoding.
func Normalize(imageData []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("undecodable image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxDimension && height <= maxDimension {
		return imageData, nil
	}

	scale := float64(maxDimension) / float64(max(width, height))
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(width)*scale), int(float64(height)*scale)))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("re-encoding downscaled image: %w", err)
	}
	return buf.Bytes(), nil
}
