package rimage

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"go.opencensus.io/trace"
	"golang.org/x/image/bmp"
)

// Supported image mime types.
const (
	MimeTypePNG  = "image/png"
	MimeTypeJPEG = "image/jpeg"
	MimeTypeBMP  = "image/bmp"
	MimeTypeQOI  = "image/qoi"
	MimeTypePPM  = "image/x-portable-pixmap"
)

// MimeTypeFromPath guesses a mime type from a file extension, defaulting to PNG.
func MimeTypeFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return MimeTypeJPEG
	case ".bmp":
		return MimeTypeBMP
	case ".qoi":
		return MimeTypeQOI
	case ".ppm":
		return MimeTypePPM
	default:
		return MimeTypePNG
	}
}

// EncodeImageTo writes img to w in the format named by mimeType.
func EncodeImageTo(w io.Writer, img image.Image, mimeType string) error {
	switch mimeType {
	case MimeTypePNG, "":
		return png.Encode(w, img)
	case MimeTypeJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case MimeTypeBMP:
		return bmp.Encode(w, img)
	case MimeTypeQOI:
		return qoi.Encode(w, img)
	case MimeTypePPM:
		return ppm.Encode(w, CloneToRGBA(img))
	default:
		return errors.Errorf("do not know how to encode %q", mimeType)
	}
}

// EncodeImage encodes img in the format named by mimeType.
func EncodeImage(ctx context.Context, img image.Image, mimeType string) ([]byte, error) {
	_, span := trace.StartSpan(ctx, "rimage::EncodeImage::"+mimeType)
	defer span.End()

	var buf bytes.Buffer
	if err := EncodeImageTo(&buf, img, mimeType); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteImageToFile writes img to path, choosing the format from the extension.
func WriteImageToFile(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	return EncodeImageTo(f, img, MimeTypeFromPath(path))
}
