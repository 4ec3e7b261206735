package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// StudentCursor encodes a timestamp + ULID for stable student ordering.
type StudentCursor struct {
	Timestamp time.Time
	ULID      string
}

// EncodeStudentCursor encodes the cursor as base64(ts_unix_nano:ULID).
func EncodeStudentCursor(timestamp time.Time, ulid string) string {
	value := fmt.Sprintf("%d:%s", timestamp.UTC().UnixNano(), strings.ToUpper(strings.TrimSpace(ulid)))
	return base64.RawURLEncoding.EncodeToString([]byte(value))
}

// DecodeStudentCursor decodes base64(ts_unix_nano:ULID) into a StudentCursor.
func DecodeStudentCursor(cursor string) (StudentCursor, error) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return StudentCursor{}, ErrInvalidCursor
	}
	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return StudentCursor{}, ErrInvalidCursor
	}
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return StudentCursor{}, ErrInvalidCursor
	}
	unixNano, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return StudentCursor{}, ErrInvalidCursor
	}
	if strings.TrimSpace(parts[1]) == "" {
		return StudentCursor{}, ErrInvalidCursor
	}
	return StudentCursor{Timestamp: time.Unix(0, unixNano).UTC(), ULID: strings.ToUpper(strings.TrimSpace(parts[1]))}, nil
}
