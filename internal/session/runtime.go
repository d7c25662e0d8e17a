// Package session implements the interview session runtime: a state machine
// that drives a timed, multi-section Q&A flow, solicits AI-generated follow-up
// questions between answers, and produces an immutable transcript.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/greenroom-hq/greenroom/internal/domain"
)

// State is the runtime lifecycle state. Every mutator checks it once at
// entry; calls that do not apply to the current state are ignored.
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrAlreadyStarted is returned by Start when a session already exists.
var ErrAlreadyStarted = errors.New("session already started")

// Runtime owns one Session and mediates all mutation. Public methods are
// synchronous with respect to transcript appends; only the collaborator
// round-trips (follow-up generation, summarization, persistence hand-off)
// run asynchronously, and their completions re-enter the runtime through the
// same mutex-guarded paths.
type Runtime struct {
	mu         sync.Mutex
	state      State
	session    *domain.Session
	currentIdx int
	clock      Clock
	ledger     Ledger

	sectionStartedAt time.Time

	generator  domain.FollowupGenerator
	summarizer domain.Summarizer
	sink       domain.SessionSink

	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
	staleGuard bool
	observe    func(op string, err error)

	inflight sync.WaitGroup
}

// New creates an idle runtime. Collaborators are optional: without a
// generator no follow-ups are asked, without a summarizer no artifacts are
// produced, without a sink nothing is persisted.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		logger: slog.Default(),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.observe == nil {
		r.observe = func(op string, err error) {
			r.logger.Warn("collaborator call failed", slog.String("op", op), slog.String("error", err.Error()))
		}
	}
	return r
}

// Start transitions Uninitialized → Active(0): creates the session, arms the
// clock with the first section's duration, and opens with the first prompt as
// an interviewer utterance. The script is assumed pre-validated.
func (r *Runtime) Start(script domain.Script) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateUninitialized {
		return ErrAlreadyStarted
	}

	now := r.now()
	progress := make([]domain.SectionProgress, len(script.Sections))
	for i, sec := range script.Sections {
		progress[i] = domain.SectionProgress{ID: sec.ID}
	}
	r.session = &domain.Session{
		ID:        r.newID(),
		Script:    script,
		StartedAt: now.UnixMilli(),
		Sections:  progress,
	}
	r.state = StateActive
	r.currentIdx = 0
	r.clock.Arm(script.Sections[0].TargetDurationSec)
	r.markSectionStarted(0)
	r.appendLocked(domain.SpeakerInterviewer, script.Sections[0].Prompt)

	r.logger.Info("session started",
		slog.String("session_id", r.session.ID),
		slog.Int("sections", len(script.Sections)))
	return nil
}

// AddCandidate records a candidate utterance on the current section, then
// applies the follow-up policy: advance if the section has expired, stay
// quiet inside the guard band, otherwise ask the generator for a follow-up.
// The generation round-trip is fire-and-forget; its completion appends the
// first follow-up (if any) as an interviewer utterance.
func (r *Runtime) AddCandidate(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateActive {
		return
	}

	sec := r.session.Script.Sections[r.currentIdx]
	r.appendLocked(domain.SpeakerCandidate, text)

	switch decideFollowup(&r.clock) {
	case actionAdvance:
		r.advanceLocked()
	case actionSuppress:
		// Stay on the section awaiting further input or natural expiry.
	case actionRequest:
		if r.generator == nil {
			return
		}
		issuedIdx := r.currentIdx
		r.inflight.Add(1)
		go r.requestFollowup(issuedIdx, sec.Prompt, text)
	}
}

// requestFollowup runs the generation round-trip off the mutator path. Any
// transport or parsing failure is absorbed: a dropped follow-up must never be
// user-visible as an error.
func (r *Runtime) requestFollowup(issuedIdx int, question, answer string) {
	defer r.inflight.Done()

	followups, err := r.generator.Generate(context.Background(), question, answer)
	if err != nil {
		r.observe("followup", err)
		return
	}
	if len(followups) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateActive {
		return
	}
	if r.staleGuard && r.currentIdx != issuedIdx {
		r.logger.Debug("discarding stale follow-up",
			slog.Int("issued_section", issuedIdx),
			slog.Int("current_section", r.currentIdx))
		return
	}
	// Only the first follow-up is asked, to keep the section's pacing tight.
	r.appendLocked(domain.SpeakerInterviewer, followups[0])
}

// AddInterviewer records an interviewer utterance on the current section.
func (r *Runtime) AddInterviewer(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateActive {
		return
	}
	r.appendLocked(domain.SpeakerInterviewer, text)
}

// Tick consumes one heartbeat second. Pure time passage: expiry arms the next
// advance but the transition itself waits for the candidate's next turn, so
// whatever they are saying gets recorded before the cut-off.
func (r *Runtime) Tick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateActive {
		return
	}
	r.clock.Tick()
}

// Advance moves to the next section (or finishes after the last one). It is
// the same transition the expiry path takes; exposing it lets an operator cut
// a section short manually.
func (r *Runtime) Advance() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateActive {
		return
	}
	r.advanceLocked()
}

func (r *Runtime) advanceLocked() {
	last := r.session.Script.Sections[r.currentIdx]
	r.appendLocked(domain.SpeakerInterviewer, fmt.Sprintf("Moving on from %q.", last.ID))
	r.markSectionEnded(r.currentIdx)

	nextIdx := r.currentIdx + 1
	if nextIdx < len(r.session.Script.Sections) {
		next := r.session.Script.Sections[nextIdx]
		r.currentIdx = nextIdx
		r.clock.Arm(next.TargetDurationSec)
		r.markSectionStarted(nextIdx)
		r.appendLocked(domain.SpeakerInterviewer, next.Prompt)
		return
	}
	r.finishLocked()
}

// Finish ends the session: sets EndedAt, stops the clock, and kicks off the
// summarization and persistence hand-off. Idempotent; a second call is a
// no-op. Summarization and persistence failures are absorbed, leaving
// artifacts unset or the record unsaved.
func (r *Runtime) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateActive {
		return
	}
	r.finishLocked()
}

func (r *Runtime) finishLocked() {
	r.state = StateFinished
	r.session.EndedAt = r.now().UnixMilli()
	r.clock.Stop()
	r.markSectionEnded(r.currentIdx)
	r.session.Transcript = r.ledger.Utterances()

	r.logger.Info("session finished",
		slog.String("session_id", r.session.ID),
		slog.Int("utterances", r.ledger.Len()))

	if r.summarizer == nil && r.sink == nil {
		return
	}
	r.inflight.Add(1)
	go r.completeFinish()
}

// completeFinish runs the post-finish collaborator calls: summarize first so
// artifacts ride along in the persisted record, then hand the consolidated
// session to the sink.
func (r *Runtime) completeFinish() {
	defer r.inflight.Done()

	if r.summarizer != nil {
		snap := r.Snapshot()
		artifacts, err := r.summarizer.Summarize(context.Background(), snap.Transcript)
		if err != nil {
			r.observe("summarize", err)
		} else if artifacts != nil {
			r.SetArtifacts(*artifacts)
		}
	}
	if r.sink != nil {
		if err := r.sink.SaveSession(context.Background(), r.Snapshot()); err != nil {
			r.observe("persist", err)
		}
	}
}

// SetParticipant attaches candidate identity info. Available in any state
// once a session exists.
func (r *Runtime) SetParticipant(p domain.Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return
	}
	r.session.Participant = &p
}

// SetArtifacts stores post-session derived data on the session.
func (r *Runtime) SetArtifacts(a domain.Artifacts) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return
	}
	r.session.Artifacts = &a
}

// Drain blocks until all in-flight collaborator calls have completed. Used by
// tests and by callers that want artifacts and persistence settled before
// reading a final snapshot.
func (r *Runtime) Drain() {
	r.inflight.Wait()
}

// Snapshot returns a copy of the session safe to read concurrently with the
// runtime. Returns nil before Start.
func (r *Runtime) Snapshot() *domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil
	}
	snap := *r.session
	snap.Transcript = r.ledger.Utterances()
	snap.Sections = make([]domain.SectionProgress, len(r.session.Sections))
	copy(snap.Sections, r.session.Sections)
	if r.session.Participant != nil {
		p := *r.session.Participant
		snap.Participant = &p
	}
	if r.session.Artifacts != nil {
		a := *r.session.Artifacts
		snap.Artifacts = &a
	}
	return &snap
}

// State returns the current lifecycle state.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// CurrentIndex returns the index of the active section.
func (r *Runtime) CurrentIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentIdx
}

// TimeLeftSec returns the clock's remaining seconds.
func (r *Runtime) TimeLeftSec() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clock.TimeLeftSec()
}

// Expired reports whether the active section's countdown has run out.
func (r *Runtime) Expired() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clock.Expired()
}

// Ticking reports whether the countdown is running.
func (r *Runtime) Ticking() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clock.Ticking()
}

// appendLocked records an utterance on the current section and mirrors the
// ledger into the session. Caller holds the mutex.
func (r *Runtime) appendLocked(speaker domain.Speaker, text string) {
	r.ledger.Append(domain.Utterance{
		Speaker:   speaker,
		Text:      text,
		AtMs:      r.now().UnixMilli(),
		SectionID: r.session.Script.Sections[r.currentIdx].ID,
	})
	r.session.Transcript = r.ledger.Utterances()
}

func (r *Runtime) markSectionStarted(idx int) {
	r.sectionStartedAt = r.now()
	r.session.Sections[idx].StartedAt = r.sectionStartedAt.UnixMilli()
}

// markSectionEnded closes the progress record for a section. Overrun is the
// wall-clock time spent past the section's target; the record is a soft log,
// not a scheduling authority.
func (r *Runtime) markSectionEnded(idx int) {
	rec := &r.session.Sections[idx]
	if rec.EndedAt != 0 {
		return
	}
	now := r.now()
	rec.EndedAt = now.UnixMilli()
	if !r.sectionStartedAt.IsZero() {
		elapsed := int(now.Sub(r.sectionStartedAt) / time.Second)
		if over := elapsed - r.session.Script.Sections[idx].TargetDurationSec; over > 0 {
			rec.OverrunSec = over
		}
	}
}
