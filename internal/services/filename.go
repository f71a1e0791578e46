package services

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DecodeFilename repairs attachment names that were decoded with a single-byte
// charset. Raw latin-1 bytes are decoded; UTF-8 text that was misread as
// latin-1 ("RelatÃ³rio") is folded back ("Relatório"). Names that are already
// correct, or that cannot be repaired, are returned unchanged.
func DecodeFilename(name string) string {
	if name == "" {
		return name
	}

	if !utf8.ValidString(name) {
		decoded, err := charmap.ISO8859_1.NewDecoder().String(name)
		if err != nil {
			return name
		}
		return decoded
	}

	hasHigh := false
	for _, r := range name {
		if r > 0xFF {
			return name
		}
		if r >= 0x80 {
			hasHigh = true
		}
	}
	if !hasHigh {
		return name
	}

	raw, err := charmap.ISO8859_1.NewEncoder().String(name)
	if err != nil || !utf8.ValidString(raw) {
		return name
	}
	return raw
}
