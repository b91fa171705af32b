package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"
)

var (
	ErrEmptyImage       = errors.New("image is empty")
	ErrImageTooLarge    = errors.New("image exceeds maximum upload size")
	ErrUnsupportedImage = errors.New("unsupported image format")
)

// ImageInfo describes a validated upload.
type ImageInfo struct {
	MimeType string
	Format   string // jpeg, png, gif, webp
	Width    int
	Height   int
}

// ValidateImage checks size and decodes only the image header to detect the
// real format, independent of the client supplied content type.
func ValidateImage(data []byte, maxBytes int64) (*ImageInfo, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrImageTooLarge, len(data), maxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	return &ImageInfo{
		MimeType: "image/" + format,
		Format:   format,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

// Extension returns the canonical file extension for the format.
func (i *ImageInfo) Extension() string {
	if i.Format == "jpeg" {
		return ".jpg"
	}
	return "." + i.Format
}

// safeBase strips directories and odd characters from a client filename.
func safeBase(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() > 40 {
		return b.String()[:40]
	}
	return b.String()
}
