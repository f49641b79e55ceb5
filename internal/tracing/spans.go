package tracing

// InstrumentationName is the tracer name used by instrumented packages.
const InstrumentationName = "github.com/zjrosen/botcheck"

// Span names.
const (
	SpanRetrieve = "watcher.retrieve"
	SpanFollow   = "transcript.follow"
)

// Span attribute keys.
const (
	AttrWatcherID   = "watcher.id"
	AttrWatcherName = "watcher.name"
	AttrRequestID   = "watcher.request.id"
	AttrTimeoutMs   = "watcher.timeout_ms"
	AttrOutcome     = "watcher.outcome"
	AttrBuffered    = "watcher.buffered"

	AttrTranscriptPath      = "transcript.path"
	AttrTranscriptPublished = "transcript.published"
	AttrTranscriptSkipped   = "transcript.skipped"
)

// Retrieve outcomes recorded under AttrOutcome.
const (
	OutcomeImmediate = "immediate" // served from the buffer
	OutcomeWoken     = "woken"     // delivered by a concurrent intake
	OutcomeTimeout   = "timeout"
	OutcomeCancelled = "cancelled" // caller context ended
	OutcomeClosed    = "closed"
	OutcomeMisuse    = "misuse"
)

// Span event names.
const (
	EventDelivered = "watcher.delivered"
	EventTruncated = "transcript.truncated"
)
