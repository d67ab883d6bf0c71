package extractor

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeText turns raw request bytes into a string, honoring UTF-8 and
// UTF-16 byte order marks and falling back to Windows-1252 for invalid UTF-8.
func DecodeText(data []byte) string {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return string(data[3:])
	}

	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE {
		if decoded, err := decodeWith(data, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()); err == nil {
			return decoded
		}
	}

	if len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF {
		if decoded, err := decodeWith(data, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()); err == nil {
			return decoded
		}
	}

	if utf8.Valid(data) {
		return string(data)
	}

	if decoded, err := decodeWith(data, charmap.Windows1252.NewDecoder()); err == nil {
		return decoded
	}

	return string(data)
}

func decodeWith(data []byte, t transform.Transformer) (string, error) {
	decoded, _, err := transform.Bytes(t, data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
