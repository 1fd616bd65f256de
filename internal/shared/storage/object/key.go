package object

import (
	"bytes"
	"fmt"
	"io"
	"path"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"

	"resume-ats/internal/shared/util"
)

// NewKey builds the storage key for an uploaded file: the hashed owner, then
// a ULID so keys sort by upload time, then the sanitized original name.
func NewKey(userID, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(util.HashUserKey(userID), ulid.Make().String()+"_"+name), nil
}

// Sniff reads the first SniffLen bytes of r to detect its content type. The
// returned reader replays those bytes followed by the rest of r.
func Sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, SniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("read sniff: %w", err)
	}
	head = head[:n]
	return mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), r), nil
}
