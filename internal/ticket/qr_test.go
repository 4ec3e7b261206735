package ticket

import (
	"bytes"
	"errors"
	"image/png"
	"testing"
)

func TestEncodeQR(t *testing.T) {
	data, err := EncodeQR("UGBS1234567")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a valid PNG: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != qrSize || bounds.Dy() != qrSize {
		t.Fatalf("expected %dx%d image, got %dx%d", qrSize, qrSize, bounds.Dx(), bounds.Dy())
	}
}

func TestEncodeQREmpty(t *testing.T) {
	if _, err := EncodeQR(""); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("expected ErrEmptyPayload, got %v", err)
	}
}
