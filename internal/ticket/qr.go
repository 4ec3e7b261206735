package ticket

import (
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// QR size in pixels. Large enough to scan reliably from a phone screen
// held up to a webcam at the gate.
const qrSize = 512

var ErrEmptyPayload = errors.New("empty ticket payload")

// EncodeQR renders the index number as a PNG QR code. High error
// correction keeps the code readable on cracked or dim screens.
func EncodeQR(indexNumber string) ([]byte, error) {
	if indexNumber == "" {
		return nil, ErrEmptyPayload
	}
	png, err := qrcode.Encode(indexNumber, qrcode.High, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
