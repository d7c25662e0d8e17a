package session

import (
	"log/slog"
	"time"

	"github.com/greenroom-hq/greenroom/internal/domain"
)

// Option configures a Runtime.
type Option func(*Runtime)

// WithGenerator sets the follow-up generation collaborator.
func WithGenerator(g domain.FollowupGenerator) Option {
	return func(r *Runtime) { r.generator = g }
}

// WithSummarizer sets the post-session summarization collaborator.
func WithSummarizer(s domain.Summarizer) Option {
	return func(r *Runtime) { r.summarizer = s }
}

// WithSink sets the persistence sink that receives the consolidated session
// record after finish.
func WithSink(s domain.SessionSink) Option {
	return func(r *Runtime) { r.sink = s }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// WithNow overrides the wall-clock source. Intended for tests.
func WithNow(now func() time.Time) Option {
	return func(r *Runtime) { r.now = now }
}

// WithIDFunc overrides session ID generation. Intended for tests.
func WithIDFunc(f func() string) Option {
	return func(r *Runtime) { r.newID = f }
}

// WithStaleFollowupGuard discards follow-up responses that arrive after the
// section they were issued for has advanced. Off by default: a late follow-up
// then lands on whichever section is current, matching the behavior of
// clients that never tag their requests.
func WithStaleFollowupGuard() Option {
	return func(r *Runtime) { r.staleGuard = true }
}

// WithErrorObserver replaces the default log-and-continue handling of
// collaborator failures. The runtime still degrades gracefully; the observer
// only makes the swallowed errors visible.
func WithErrorObserver(observe func(op string, err error)) Option {
	return func(r *Runtime) { r.observe = observe }
}
