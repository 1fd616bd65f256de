package object

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-ats/internal/shared/util"
)

func TestNewKeyLayout(t *testing.T) {
	key, err := NewKey("user-1", "my cv.pdf")
	require.NoError(t, err)

	parts := strings.Split(key, "/")
	require.Len(t, parts, 2)
	assert.Equal(t, util.HashUserKey("user-1"), parts[0])
	assert.True(t, strings.HasSuffix(parts[1], "_my cv.pdf"))
	assert.Len(t, strings.TrimSuffix(parts[1], "_my cv.pdf"), 26)

	other, err := NewKey("user-1", "my cv.pdf")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestNewKeyRejectsTraversal(t *testing.T) {
	_, err := NewKey("user-1", "../../etc/passwd")
	assert.ErrorIs(t, err, util.ErrInvalidFileName)
}

func TestSniffReplaysHead(t *testing.T) {
	body := "%PDF-1.4\n" + strings.Repeat("x", SniffLen*2)
	mimeType, r, err := Sniff(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mimeType)

	all, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, body, string(all))
}

func TestSniffShortInput(t *testing.T) {
	mimeType, r, err := Sniff(strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Contains(t, mimeType, "text/plain")
	all, _ := io.ReadAll(r)
	assert.Equal(t, "hello", string(all))
}
