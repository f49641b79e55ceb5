package transcript

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/botcheck/internal/chat"
	"github.com/zjrosen/botcheck/internal/log"
	"github.com/zjrosen/botcheck/internal/tracing"
	"github.com/zjrosen/botcheck/internal/watcher"
)

// Follow publishes every message already in the file at path, then keeps
// publishing lines appended to it until ctx ends. Only newline-terminated
// lines are published; a partial trailing line waits for its newline. A file
// that shrinks is treated as replaced and read again from the start.
//
// The file need not exist yet. Follow returns nil when ctx ends.
func Follow(ctx context.Context, path string, publish func(chat.Message), debounce time.Duration) error {
	ctx, span := otel.Tracer(tracing.InstrumentationName).Start(ctx, tracing.SpanFollow)
	defer span.End()
	span.SetAttributes(attribute.String(tracing.AttrTranscriptPath, path))

	fw, err := watcher.New(watcher.Config{Path: path, Debounce: debounce})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer func() { _ = fw.Stop() }()

	// Watch before the first read so appends in between are not missed.
	onChange, err := fw.Start()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	t := &tail{path: path, publish: publish}
	defer func() {
		span.SetAttributes(
			attribute.Int(tracing.AttrTranscriptPublished, t.published),
			attribute.Int(tracing.AttrTranscriptSkipped, t.skipped),
		)
	}()

	if err := t.drain(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	log.Debug(log.CatTranscript, "following transcript", "path", path, "published", t.published)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-onChange:
			if err := t.drain(ctx); err != nil {
				span.SetStatus(codes.Error, err.Error())
				return err
			}
		}
	}
}

// tail tracks how far into a growing file has been consumed.
type tail struct {
	path      string
	publish   func(chat.Message)
	offset    int64
	line      int
	published int
	skipped   int
}

// drain publishes every complete line past the current offset.
func (t *tail) drain(ctx context.Context) error {
	f, err := os.Open(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening transcript: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat transcript: %w", err)
	}
	if info.Size() < t.offset {
		log.Info(log.CatTranscript, "transcript truncated, rereading", "path", t.path, "size", info.Size(), "offset", t.offset)
		t.offset, t.line = 0, 0
		trace.SpanFromContext(ctx).AddEvent(tracing.EventTruncated)
	}
	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return fmt.Errorf("seeking transcript: %w", err)
	}

	br := bufio.NewReader(f)
	for {
		b, err := br.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading transcript: %w", err)
		}
		t.offset += int64(len(b))
		t.line++

		msg, ok, derr := decodeLine(b)
		if derr != nil {
			t.skipped++
			log.Warn(log.CatTranscript, "skipping malformed line", "file", t.path, "line", t.line, "error", derr)
			continue
		}
		if ok {
			t.publish(msg)
			t.published++
		}
	}
}
