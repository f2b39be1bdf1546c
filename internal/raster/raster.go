// Package raster encodes rendered page images into the target formats.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	// Register decoders for the upload formats.
	_ "golang.org/x/image/webp"
	_ "image/gif"
)

// MIME types with a native encoder. Formats without one (webp, ico,
// eps, ...) are encoded as JPEG, the same fallback the format table
// applies.
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMETIFF = "image/tiff"
	MIMEBMP  = "image/bmp"
	MIMEPDF  = "application/pdf"
)

// Encode serializes img as the given MIME type. quality is the 0-1
// encoder quality for lossy formats and is ignored by lossless ones.
func Encode(img image.Image, mimeType string, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch mimeType {
	case MIMEPNG:
		err = png.Encode(&buf, img)
	case MIMETIFF:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	case MIMEBMP:
		err = bmp.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality(quality)})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", mimeType, err)
	}
	return buf.Bytes(), nil
}

// Decode parses raster bytes in any registered upload format.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// jpegQuality maps the 0-1 quality contract onto the encoder's 1-100
// range.
func jpegQuality(q float64) int {
	if q <= 0 {
		return 1
	}
	if q > 1 {
		return 100
	}
	n := int(q*100 + 0.5)
	if n < 1 {
		n = 1
	}
	return n
}
