package domain

import "context"

// FollowupGenerator produces clarifying follow-up questions for a candidate
// answer. Implementations return zero to three normalized questions; an empty
// slice means no follow-up is warranted.
type FollowupGenerator interface {
	Generate(ctx context.Context, question, answer string) ([]string, error)
}

// Summarizer turns a finished transcript into post-session artifacts.
type Summarizer interface {
	Summarize(ctx context.Context, transcript []Utterance) (*Artifacts, error)
}

// SessionSink receives the consolidated session record after finish. Failures
// are the caller's to absorb; the runtime never blocks on a sink.
type SessionSink interface {
	SaveSession(ctx context.Context, session *Session) error
}
