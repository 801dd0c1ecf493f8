package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Generator renders QR code PNGs for card URLs.
type Generator struct {
	size int
}

// NewGenerator returns a Generator producing size x size pixel PNGs.
func NewGenerator(size int) *Generator {
	if size <= 0 {
		size = 512
	}
	return &Generator{size: size}
}

// GeneratePNG renders the URL as a QR code PNG with low error correction,
// matching the density used for printed event badges.
func (g *Generator) GeneratePNG(url string) ([]byte, error) {
	png, err := qrcode.Encode(url, qrcode.Low, g.size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}
