// Package qrcode renders QR codes as PNG images.
package qrcode

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

const (
	MinSize     = 128
	MaxSize     = 1024
	DefaultSize = 256
)

var (
	// ErrEmptyContent is returned when there is nothing to encode.
	ErrEmptyContent = errors.New("qrcode: content is empty")
	// ErrSize is returned when the requested edge length is out of range.
	ErrSize = fmt.Errorf("qrcode: size must be between %d and %d", MinSize, MaxSize)
)

// PNG encodes content with medium error correction into a size x size PNG.
func PNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	if size < MinSize || size > MaxSize {
		return nil, ErrSize
	}

	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("qrcode: encode: %w", err)
	}

	code, err = barcode.Scale(code, size, size)
	if err != nil {
		return nil, fmt.Errorf("qrcode: scale: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return nil, fmt.Errorf("qrcode: png: %w", err)
	}

	return buf.Bytes(), nil
}
