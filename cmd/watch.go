package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/botcheck/internal/harness"
	"github.com/zjrosen/botcheck/internal/log"
	"github.com/zjrosen/botcheck/internal/transcript"
)

var (
	watchTranscript string
	watchChannel    string
	watchSelf       string
	watchCount      int
	watchTimeout    time.Duration
	watchFollow     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the bot's replies in a channel",
	Long: `Read messages from a JSONL transcript and print the first N replies posted in
a channel by anyone other than the tester, one JSON object per line.

Exits with an error if fewer than N replies arrive within the timeout.

Examples:
  # First reply to the tester's command in channel 42
  botcheck watch --transcript run.jsonl --channel 42 --self tester

  # Wait for three replies while the bot appends to the transcript
  botcheck watch -t run.jsonl --channel 42 --self tester -n 3 --follow --timeout 5s`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchTranscript, "transcript", "t", "", "JSONL transcript of chat messages (required)")
	watchCmd.Flags().StringVar(&watchChannel, "channel", "", "channel ID to watch (required)")
	watchCmd.Flags().StringVar(&watchSelf, "self", "", "the tester's author ID; its messages are not replies")
	watchCmd.Flags().IntVarP(&watchCount, "count", "n", 1, "number of replies to wait for")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 0, "wait per reply (default: watcher.default_timeout)")
	watchCmd.Flags().BoolVarP(&watchFollow, "follow", "f", false, "keep reading lines appended to the transcript")
	_ = watchCmd.MarkFlagRequired("transcript")
	_ = watchCmd.MarkFlagRequired("channel")
	rootCmd.AddCommand(watchCmd)
}

// followTranscript is replaced in tests.
var followTranscript = transcript.Follow

// watchOptions is the resolved input of a watch run.
type watchOptions struct {
	transcript  string
	channel     string
	self        string
	count       int
	timeout     time.Duration
	follow      bool
	debounce    time.Duration
	dedupeTTL   time.Duration
	maxBuffered int
	tracer      trace.Tracer
}

func runWatch(cmd *cobra.Command, _ []string) error {
	opts := watchOptions{
		transcript:  watchTranscript,
		channel:     watchChannel,
		self:        watchSelf,
		count:       watchCount,
		timeout:     watchTimeout,
		follow:      watchFollow || cfg.Transcript.Follow,
		debounce:    cfg.Transcript.Debounce,
		dedupeTTL:   cfg.Watcher.DedupeTTL,
		maxBuffered: cfg.Watcher.MaxBuffered,
		tracer:      tracer,
	}
	if opts.timeout <= 0 {
		opts.timeout = cfg.Watcher.DefaultTimeout
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	return watchReplies(ctx, opts, cmd.OutOrStdout())
}

func watchReplies(ctx context.Context, opts watchOptions, out io.Writer) error {
	if opts.count < 1 {
		return fmt.Errorf("--count must be at least 1, got %d", opts.count)
	}

	session := harness.NewSession(harness.Config{
		SelfID:         opts.self,
		DefaultTimeout: opts.timeout,
		DedupeTTL:      opts.dedupeTTL,
		MaxBuffered:    opts.maxBuffered,
		Tracer:         opts.tracer,
	})
	defer func() { _ = session.Close() }()

	channel, err := session.Watch(opts.channel)
	if err != nil {
		return err
	}

	followErr := make(chan error, 1)
	if opts.follow {
		followCtx, cancel := context.WithCancel(ctx)
		followDone := make(chan struct{})
		defer func() {
			cancel()
			<-followDone
		}()
		go func() {
			defer close(followDone)
			err := followTranscript(followCtx, opts.transcript, session.Publish, opts.debounce)
			followErr <- err
			if err != nil {
				// Release the pending Next so the failure surfaces now.
				_ = channel.Close()
			}
		}()
	} else {
		msgs, err := transcript.ReadFile(opts.transcript)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			session.Publish(m)
		}
		log.Debug(log.CatSource, "published transcript", "path", opts.transcript, "messages", len(msgs))
	}

	enc := json.NewEncoder(out)
	for i := 0; i < opts.count; i++ {
		msg, err := channel.Next(ctx, opts.timeout)
		if err != nil {
			select {
			case ferr := <-followErr:
				if ferr != nil {
					return fmt.Errorf("following transcript: %w", ferr)
				}
			default:
			}
			if errors.Is(err, context.Canceled) {
				return fmt.Errorf("interrupted after %d of %d replies", i, opts.count)
			}
			return fmt.Errorf("waiting for reply %d of %d in channel %s: %w", i+1, opts.count, opts.channel, err)
		}
		if err := enc.Encode(msg); err != nil {
			return fmt.Errorf("writing reply: %w", err)
		}
	}
	return nil
}
