// Package encoding decodes the legacy Korean strings stored in RSM models.
package encoding

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// EUCKRToUTF8 converts EUC-KR encoded bytes to UTF-8 string.
// Returns the original string if conversion fails.
func EUCKRToUTF8(data []byte) string {
	decoder := korean.EUCKR.NewDecoder()
	result, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// FixedStringToUTF8 converts a fixed-size EUC-KR encoded byte array to UTF-8 string.
// Handles null termination and encoding conversion.
func FixedStringToUTF8(data []byte) string {
	nullIdx := bytes.IndexByte(data, 0)
	if nullIdx >= 0 {
		data = data[:nullIdx]
	}
	return EUCKRToUTF8(data)
}

// SlashPath turns a Windows-style relative path from a model file into a
// forward-slash path usable with path/filepath on any OS.
func SlashPath(p string) string {
	return strings.TrimLeft(strings.ReplaceAll(p, "\\", "/"), "/")
}
