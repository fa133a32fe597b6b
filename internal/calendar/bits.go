// Package calendar packs NeTEx day-validity strings into LSB-first bitmaps
// and converts the YYMMDD dates used by operating periods.
package calendar

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/passbi/passbi_netex/internal/models"
)

const chunkSize = 8

// Pack turns a day string like "11001100" into bytes. Day i is bit i%8 of
// byte i/8, the last chunk is zero padded.
func Pack(bits string) ([]byte, error) {
	result := make([]byte, 0, (len(bits)+chunkSize-1)/chunkSize)
	for start := 0; start < len(bits); start += chunkSize {
		end := min(start+chunkSize, len(bits))
		b, err := packChunk(bits[start:end])
		if err != nil {
			return nil, fmt.Errorf("day %d: %w", start, err)
		}
		result = append(result, b)
	}
	return result, nil
}

func packChunk(chunk string) (byte, error) {
	var b byte
	for i := 0; i < len(chunk); i++ {
		switch chunk[i] {
		case '1':
			b |= 1 << i
		case '0':
		default:
			return 0, fmt.Errorf("%w: invalid day bit %q", models.ErrMalformedField, chunk[i])
		}
	}
	return b, nil
}

// Unpack is the inverse of Pack for the first days bits
func Unpack(packed []byte, days int) string {
	var sb strings.Builder
	sb.Grow(days)
	for i := 0; i < days; i++ {
		if Active(packed, i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Active reports whether day is set. Days beyond the bitmap are inactive.
func Active(packed []byte, day int) bool {
	if day < 0 || day/chunkSize >= len(packed) {
		return false
	}
	return packed[day/chunkSize]&(1<<(day%chunkSize)) != 0
}

// Encode returns the text-safe form of a packed bitmap
func Encode(packed []byte) string {
	return base64.StdEncoding.EncodeToString(packed)
}

// Decode reverses Encode
func Decode(text string) ([]byte, error) {
	packed, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: valid day bits: %v", models.ErrMalformedField, err)
	}
	return packed, nil
}
