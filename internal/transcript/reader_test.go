package transcript

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReader_SkipsBlankAndMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		`{"id":"m1","channel_id":"c1","author_id":"bot","content":"one"}`,
		``,
		`   `,
		`{not json`,
		`{"id":"m2","channel_id":"c1","author_id":"bot","content":"two"}`,
	}, "\n")

	r := NewReader(strings.NewReader(input), "test")

	msg, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, "m1", msg.ID)

	msg, err = r.Next()
	require.NoError(t, err)
	require.Equal(t, "m2", msg.ID, "last line without newline is still read")

	_, err = r.Next()
	require.True(t, errors.Is(err, io.EOF))
	require.Equal(t, 1, r.Skipped())
}

func TestReader_Empty(t *testing.T) {
	r := NewReader(strings.NewReader(""), "empty")
	_, err := r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.jsonl")
	content := `{"id":"a","content":"x"}` + "\n" + `{"id":"b","content":"y"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	msgs, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "a", msgs[0].ID)
	require.Equal(t, "y", msgs[1].Content)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
