package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeStudentCursor(t *testing.T) {
	timestamp := time.Date(2025, 3, 2, 3, 4, 5, 6, time.UTC)

	cursor := EncodeStudentCursor(timestamp, "  01hyx3kqw7ertv9xnbm2p8qjzf ")

	decoded, err := DecodeStudentCursor(cursor)

	require.NoError(t, err)
	require.Equal(t, timestamp, decoded.Timestamp)
	require.Equal(t, "01HYX3KQW7ERTV9XNBM2P8QJZF", decoded.ULID)
}

func TestDecodeStudentCursorErrors(t *testing.T) {
	_, err := DecodeStudentCursor("")

	require.ErrorIs(t, err, ErrInvalidCursor)

	_, err = DecodeStudentCursor("not-base64")

	require.ErrorIs(t, err, ErrInvalidCursor)

	_, err = DecodeStudentCursor("bm90LWFfdmFsaWRfZm9ybWF0")

	require.ErrorIs(t, err, ErrInvalidCursor)
}
