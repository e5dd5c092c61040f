package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"

	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"

	"github.com/cardify/api/internal/platform/textutil"
)

// ErrEmptyTarget is returned when asked to encode an empty QR target.
var ErrEmptyTarget = errors.New("qr: empty target")

// Download defaults for the standalone QR image.
const (
	DownloadSize   = 800
	DownloadMargin = 20
)

// Image renders value as a size×size code with a quiet zone of margin pixels.
func Image(value string, size, margin int) (image.Image, error) {
	if value == "" {
		return nil, ErrEmptyTarget
	}
	if size <= 0 {
		return nil, fmt.Errorf("qr: invalid size %d", size)
	}
	if margin < 0 || 2*margin >= size {
		margin = 0
	}
	code, err := qrcode.New(value, qrcode.High)
	if err != nil {
		return nil, fmt.Errorf("qr: encode: %w", err)
	}
	code.DisableBorder = true
	code.ForegroundColor = color.Black
	code.BackgroundColor = color.White

	inner := code.Image(size - 2*margin)
	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(canvas, inner.Bounds().Add(image.Pt(margin, margin)), inner, inner.Bounds().Min, draw.Over)
	return canvas, nil
}

// EncodePNG renders the standalone download image for value.
func EncodePNG(value string, size int) ([]byte, error) {
	margin := DownloadMargin * size / DownloadSize
	img, err := Image(value, size, margin)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("qr: png: %w", err)
	}
	return buf.Bytes(), nil
}

// DownloadFileName names the standalone QR download after the company.
func DownloadFileName(companyName string) string {
	if companyName == "" {
		companyName = "cardify_qr"
	}
	return textutil.ReplaceNonAlnum(companyName, '_') + "_qr.png"
}
