package reader

import (
	"errors"
	"fmt"

	"golang.org/x/text/encoding/charmap"

	"github.com/joshuapare/samkit/internal/format"
)

// DecodeKeyName converts the NK name encoding into UTF-8.
func DecodeKeyName(nk format.NKRecord) (string, error) {
	return decodeName(nk.NameRaw, nk.NameIsCompressed())
}

// DecodeValueName converts the raw name stored in a VK record into UTF-8.
// VK names follow the same compression rules as NK names.
func DecodeValueName(vk format.VKRecord) (string, error) {
	return decodeName(vk.NameRaw, vk.NameIsASCII())
}

func decodeName(data []byte, compressed bool) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if compressed {
		// ASCII is identical in Windows-1252 and UTF-8.
		if isASCII(data) {
			return string(data), nil
		}
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("failed to decode Windows-1252 name: %w", err)
		}
		return string(decoded), nil
	}
	if len(data)%2 != 0 {
		return "", errors.New("utf-16 name has odd length")
	}
	return decodeUTF16LE(data), nil
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}
