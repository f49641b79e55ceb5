// Package transcript reads recorded chat traffic from JSON Lines files.
//
// Each non-blank line holds one chat.Message. Malformed lines are logged and
// skipped so a partially corrupt transcript still yields its good records.
package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zjrosen/botcheck/internal/chat"
	"github.com/zjrosen/botcheck/internal/log"
)

// Reader decodes messages from a JSONL stream.
type Reader struct {
	br      *bufio.Reader
	name    string
	line    int
	skipped int
}

// NewReader returns a Reader over r. name labels log lines.
func NewReader(r io.Reader, name string) *Reader {
	return &Reader{br: bufio.NewReader(r), name: name}
}

// Next returns the next message, or io.EOF when the stream is exhausted.
// A final line without a trailing newline is still decoded.
func (r *Reader) Next() (chat.Message, error) {
	for {
		b, err := r.br.ReadBytes('\n')
		if len(b) > 0 {
			r.line++
			if msg, ok := r.decode(b); ok {
				return msg, nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return chat.Message{}, io.EOF
			}
			return chat.Message{}, fmt.Errorf("reading %s: %w", r.name, err)
		}
	}
}

// Skipped returns the number of malformed lines seen so far.
func (r *Reader) Skipped() int { return r.skipped }

func (r *Reader) decode(b []byte) (chat.Message, bool) {
	msg, ok, err := decodeLine(b)
	if err != nil {
		r.skipped++
		log.Warn(log.CatTranscript, "skipping malformed line", "file", r.name, "line", r.line, "error", err)
	}
	return msg, ok
}

// decodeLine parses one line. Blank lines return ok=false with no error.
func decodeLine(b []byte) (chat.Message, bool, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return chat.Message{}, false, nil
	}
	var msg chat.Message
	if err := json.Unmarshal(b, &msg); err != nil {
		return chat.Message{}, false, err
	}
	return msg, true, nil
}

// ReadFile decodes every message in the file at path.
func ReadFile(path string) ([]chat.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening transcript: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := NewReader(f, path)
	var out []chat.Message
	for {
		msg, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, msg)
	}
}
