package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFileNameLength caps stored file names in bytes. Object keys add a
// prefix, so the name itself stays well below the S3 key limit.
const MaxFileNameLength = 200

// ErrInvalidFileName is returned for names that cannot be stored safely.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName turns an uploaded file name into a single safe path
// segment. Separators become underscores and control characters are dropped.
// Traversal sequences are rejected outright. Long names are cut, keeping the
// extension.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\':
			b.WriteByte('_')
		case r == utf8.RuneError || unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	s := strings.TrimSpace(b.String())
	if s == "" || s == "." {
		return "", ErrInvalidFileName
	}
	if len(s) <= MaxFileNameLength {
		return s, nil
	}
	ext := path.Ext(s)
	if len(ext) > 16 {
		ext = ""
	}
	stem := s[:len(s)-len(ext)]
	cut := MaxFileNameLength - len(ext)
	for cut > 0 && !utf8.RuneStart(stem[cut]) {
		cut--
	}
	return stem[:cut] + ext, nil
}
