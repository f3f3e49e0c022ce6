package utils

import (
	"bytes"
	"unicode/utf8"
)

// IsBinary reports whether data cannot be presented as UTF-8 text.
// Invalid UTF-8 sequences and NUL bytes both mark the data as binary.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if !utf8.Valid(data) {
		return true
	}
	return bytes.IndexByte(data, 0) >= 0
}
