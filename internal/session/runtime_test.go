package session

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/greenroom-hq/greenroom/internal/domain"
)

func testScript(sections ...domain.Section) domain.Script {
	return domain.Script{Title: "Backend role", Sections: sections}
}

func oneSection() domain.Script {
	return testScript(domain.Section{ID: "intro", Prompt: "Tell me about yourself.", TargetDurationSec: 60})
}

func twoSections() domain.Script {
	return testScript(
		domain.Section{ID: "intro", Prompt: "Tell me about yourself.", TargetDurationSec: 60},
		domain.Section{ID: "systems", Prompt: "Describe a system you designed.", TargetDurationSec: 120},
	)
}

// fakeGenerator records calls and optionally blocks until released.
type fakeGenerator struct {
	mu        sync.Mutex
	questions []string
	answers   []string
	followups []string
	err       error
	release   chan struct{}
}

func (g *fakeGenerator) Generate(_ context.Context, question, answer string) ([]string, error) {
	g.mu.Lock()
	g.questions = append(g.questions, question)
	g.answers = append(g.answers, answer)
	release := g.release
	g.mu.Unlock()
	if release != nil {
		<-release
	}
	return g.followups, g.err
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.questions)
}

type fakeSummarizer struct {
	mu        sync.Mutex
	callCount int
	artifacts *domain.Artifacts
	err       error
}

func (s *fakeSummarizer) Summarize(_ context.Context, _ []domain.Utterance) (*domain.Artifacts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callCount++
	return s.artifacts, s.err
}

func (s *fakeSummarizer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

type fakeSink struct {
	mu    sync.Mutex
	saved []*domain.Session
	err   error
}

func (s *fakeSink) SaveSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, session)
	return s.err
}

func (s *fakeSink) last() *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saved) == 0 {
		return nil
	}
	return s.saved[len(s.saved)-1]
}

type observedError struct {
	op  string
	err error
}

type errorCollector struct {
	mu   sync.Mutex
	seen []observedError
}

func (c *errorCollector) observe(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, observedError{op: op, err: err})
}

func (c *errorCollector) ops() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.seen))
	for i, o := range c.seen {
		out[i] = o.op
	}
	return out
}

func transcriptTexts(rt *Runtime) []string {
	snap := rt.Snapshot()
	if snap == nil {
		return nil
	}
	out := make([]string, len(snap.Transcript))
	for i, u := range snap.Transcript {
		out[i] = u.Text
	}
	return out
}

func TestStart_OpensWithFirstPrompt(t *testing.T) {
	rt := New(WithIDFunc(func() string { return "sess-1" }))
	if err := rt.Start(oneSection()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if rt.State() != StateActive {
		t.Errorf("State = %v, want active", rt.State())
	}
	if rt.TimeLeftSec() != 60 {
		t.Errorf("TimeLeftSec = %d, want 60", rt.TimeLeftSec())
	}
	if !rt.Ticking() {
		t.Error("expected clock ticking after start")
	}

	snap := rt.Snapshot()
	if snap.ID != "sess-1" {
		t.Errorf("session ID = %q, want sess-1", snap.ID)
	}
	if snap.StartedAt == 0 {
		t.Error("StartedAt not set")
	}
	if len(snap.Transcript) != 1 {
		t.Fatalf("transcript length = %d, want 1", len(snap.Transcript))
	}
	u := snap.Transcript[0]
	if u.Speaker != domain.SpeakerInterviewer || u.Text != "Tell me about yourself." || u.SectionID != "intro" {
		t.Errorf("opening utterance = %+v", u)
	}
	if len(snap.Sections) != 1 || snap.Sections[0].StartedAt == 0 {
		t.Errorf("section progress not started: %+v", snap.Sections)
	}
}

func TestStart_SecondCallRejected(t *testing.T) {
	rt := New()
	if err := rt.Start(oneSection()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := rt.Start(oneSection()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
}

func TestMutators_NoOpBeforeStart(t *testing.T) {
	rt := New()

	rt.AddCandidate("hello")
	rt.AddInterviewer("hello")
	rt.Tick()
	rt.Advance()
	rt.Finish()

	if rt.State() != StateUninitialized {
		t.Errorf("State = %v, want uninitialized", rt.State())
	}
	if rt.Snapshot() != nil {
		t.Error("Snapshot should be nil before start")
	}
}

// Scenario A: an answer with time to spare issues a generation request; an
// empty result appends nothing.
func TestAddCandidate_EmptyFollowupsAppendNothing(t *testing.T) {
	gen := &fakeGenerator{followups: nil}
	rt := New(WithGenerator(gen))
	if err := rt.Start(oneSection()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 15; i++ {
		rt.Tick()
	}
	if rt.TimeLeftSec() != 45 {
		t.Fatalf("TimeLeftSec = %d, want 45", rt.TimeLeftSec())
	}

	rt.AddCandidate("hi")
	rt.Drain()

	if gen.calls() != 1 {
		t.Fatalf("generator calls = %d, want 1", gen.calls())
	}
	if gen.questions[0] != "Tell me about yourself." || gen.answers[0] != "hi" {
		t.Errorf("generator got (%q, %q)", gen.questions[0], gen.answers[0])
	}
	if got := transcriptTexts(rt); !reflect.DeepEqual(got, []string{"Tell me about yourself.", "hi"}) {
		t.Errorf("transcript = %v", got)
	}
}

// Scenario D: only the first follow-up is asked.
func TestAddCandidate_OnlyFirstFollowupAppended(t *testing.T) {
	gen := &fakeGenerator{followups: []string{"Can you elaborate?", "Any metrics?"}}
	rt := New(WithGenerator(gen))
	if err := rt.Start(twoSections()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 10; i++ {
		rt.Tick()
	}

	rt.AddCandidate("I built a queueing system.")
	rt.Drain()

	got := transcriptTexts(rt)
	want := []string{"Tell me about yourself.", "I built a queueing system.", "Can you elaborate?"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("transcript = %v, want %v", got, want)
	}
	last := rt.Snapshot().Transcript[2]
	if last.Speaker != domain.SpeakerInterviewer || last.SectionID != "intro" {
		t.Errorf("follow-up utterance = %+v", last)
	}
}

func TestAddCandidate_GuardBandSuppressesFollowup(t *testing.T) {
	gen := &fakeGenerator{followups: []string{"Should not be asked?"}}
	rt := New(WithGenerator(gen))
	if err := rt.Start(oneSection()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 30; i++ {
		rt.Tick()
	}
	if rt.TimeLeftSec() != 30 {
		t.Fatalf("TimeLeftSec = %d, want 30", rt.TimeLeftSec())
	}

	rt.AddCandidate("short on time")
	rt.Drain()

	if gen.calls() != 0 {
		t.Errorf("generator calls = %d, want 0 inside guard band", gen.calls())
	}
	if rt.State() != StateActive || rt.CurrentIndex() != 0 {
		t.Error("guard band must not advance the section")
	}
	if n := len(rt.Snapshot().Transcript); n != 2 {
		t.Errorf("transcript length = %d, want 2", n)
	}
}

// Scenario B: ticking alone expires the clock but never advances.
func TestTick_ExpiryDoesNotAdvance(t *testing.T) {
	rt := New()
	if err := rt.Start(oneSection()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 60; i++ {
		rt.Tick()
	}

	if rt.TimeLeftSec() != 0 || !rt.Expired() || rt.Ticking() {
		t.Errorf("clock = (left=%d expired=%v ticking=%v), want (0 true false)",
			rt.TimeLeftSec(), rt.Expired(), rt.Ticking())
	}
	if rt.State() != StateActive || rt.CurrentIndex() != 0 {
		t.Error("expiry alone must not advance or finish")
	}
	if n := len(rt.Snapshot().Transcript); n != 1 {
		t.Errorf("transcript length = %d, want 1 (ticks append nothing)", n)
	}
}

// Scenario C: the candidate's answer after expiry is recorded, then the last
// section's advance finishes the session and summarizes once.
func TestAddCandidate_AfterExpiryFinishesLastSection(t *testing.T) {
	gen := &fakeGenerator{followups: []string{"Never asked?"}}
	sum := &fakeSummarizer{artifacts: &domain.Artifacts{Summary: "done"}}
	sink := &fakeSink{}
	rt := New(WithGenerator(gen), WithSummarizer(sum), WithSink(sink))
	if err := rt.Start(oneSection()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 60; i++ {
		rt.Tick()
	}
	rt.AddCandidate("final answer")
	rt.Drain()

	if gen.calls() != 0 {
		t.Errorf("generator calls = %d, want 0 after expiry", gen.calls())
	}
	snap := rt.Snapshot()
	if snap.EndedAt == 0 {
		t.Error("EndedAt not set")
	}
	if rt.State() != StateFinished {
		t.Errorf("State = %v, want finished", rt.State())
	}
	got := transcriptTexts(rt)
	want := []string{"Tell me about yourself.", "final answer", `Moving on from "intro".`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("transcript = %v, want %v", got, want)
	}
	if sum.calls() != 1 {
		t.Errorf("summarizer calls = %d, want 1", sum.calls())
	}
	if snap.Artifacts == nil || snap.Artifacts.Summary != "done" {
		t.Errorf("artifacts = %+v, want summary 'done'", snap.Artifacts)
	}
	saved := sink.last()
	if saved == nil {
		t.Fatal("sink never received the session")
	}
	if saved.Artifacts == nil {
		t.Error("persisted record missing artifacts")
	}
}

func TestAddCandidate_AfterExpiryAdvancesToNextSection(t *testing.T) {
	rt := New()
	if err := rt.Start(twoSections()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 60; i++ {
		rt.Tick()
	}
	rt.AddCandidate("my background")

	if rt.CurrentIndex() != 1 {
		t.Fatalf("CurrentIndex = %d, want 1", rt.CurrentIndex())
	}
	if rt.TimeLeftSec() != 120 || !rt.Ticking() || rt.Expired() {
		t.Errorf("clock not re-armed: (left=%d ticking=%v expired=%v)",
			rt.TimeLeftSec(), rt.Ticking(), rt.Expired())
	}
	got := transcriptTexts(rt)
	want := []string{
		"Tell me about yourself.",
		"my background",
		`Moving on from "intro".`,
		"Describe a system you designed.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("transcript = %v, want %v", got, want)
	}
}

func TestAdvance_ManualMatchesExpiryTransition(t *testing.T) {
	rt := New()
	if err := rt.Start(twoSections()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rt.Advance()

	if rt.CurrentIndex() != 1 {
		t.Fatalf("CurrentIndex = %d, want 1", rt.CurrentIndex())
	}
	if rt.TimeLeftSec() != 120 || !rt.Ticking() {
		t.Error("clock not re-armed by manual advance")
	}
	got := transcriptTexts(rt)
	want := []string{
		"Tell me about yourself.",
		`Moving on from "intro".`,
		"Describe a system you designed.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("transcript = %v, want %v", got, want)
	}
}

func TestFinish_Idempotent(t *testing.T) {
	current := time.UnixMilli(1_700_000_000_000)
	sum := &fakeSummarizer{artifacts: &domain.Artifacts{Summary: "once"}}
	rt := New(WithSummarizer(sum), WithNow(func() time.Time { return current }))
	if err := rt.Start(oneSection()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rt.Finish()
	rt.Drain()
	first := rt.Snapshot().EndedAt

	current = current.Add(time.Minute)
	rt.Finish()
	rt.Drain()

	if got := rt.Snapshot().EndedAt; got != first {
		t.Errorf("EndedAt changed on second Finish: %d -> %d", first, got)
	}
	if sum.calls() != 1 {
		t.Errorf("summarizer calls = %d, want 1", sum.calls())
	}
}

func TestFinish_NoTicksOrTransitionsAfter(t *testing.T) {
	rt := New()
	if err := rt.Start(twoSections()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rt.Finish()

	before := len(rt.Snapshot().Transcript)
	rt.Tick()
	rt.AddCandidate("too late")
	rt.Advance()

	if rt.State() != StateFinished {
		t.Errorf("State = %v, want finished", rt.State())
	}
	if got := len(rt.Snapshot().Transcript); got != before {
		t.Errorf("transcript grew after finish: %d -> %d", before, got)
	}
}

func TestFollowup_LateResponseLandsOnCurrentSectionByDefault(t *testing.T) {
	release := make(chan struct{})
	gen := &fakeGenerator{followups: []string{"Late question?"}, release: release}
	rt := New(WithGenerator(gen))
	if err := rt.Start(twoSections()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rt.AddCandidate("answer in section one")
	rt.Advance()
	close(release)
	rt.Drain()

	snap := rt.Snapshot()
	last := snap.Transcript[len(snap.Transcript)-1]
	if last.Text != "Late question?" {
		t.Fatalf("late follow-up not appended, last = %+v", last)
	}
	// Without the guard a late response is tagged with whatever section is
	// current when it resolves.
	if last.SectionID != "systems" {
		t.Errorf("late follow-up section = %q, want systems", last.SectionID)
	}
}

func TestFollowup_StaleGuardDiscardsLateResponse(t *testing.T) {
	release := make(chan struct{})
	gen := &fakeGenerator{followups: []string{"Late question?"}, release: release}
	rt := New(WithGenerator(gen), WithStaleFollowupGuard())
	if err := rt.Start(twoSections()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rt.AddCandidate("answer in section one")
	rt.Advance()
	before := len(rt.Snapshot().Transcript)
	close(release)
	rt.Drain()

	if got := len(rt.Snapshot().Transcript); got != before {
		t.Errorf("stale follow-up appended despite guard: %d -> %d", before, got)
	}
}

func TestFollowup_ResponseAfterFinishDiscarded(t *testing.T) {
	release := make(chan struct{})
	gen := &fakeGenerator{followups: []string{"Too late?"}, release: release}
	rt := New(WithGenerator(gen))
	if err := rt.Start(oneSection()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rt.AddCandidate("an answer")
	rt.Finish()
	before := len(rt.Snapshot().Transcript)
	close(release)
	rt.Drain()

	if got := len(rt.Snapshot().Transcript); got != before {
		t.Errorf("follow-up appended after finish: %d -> %d", before, got)
	}
}

func TestFollowup_GeneratorErrorObservedAndSwallowed(t *testing.T) {
	collector := &errorCollector{}
	gen := &fakeGenerator{err: errors.New("upstream down")}
	rt := New(WithGenerator(gen), WithErrorObserver(collector.observe))
	if err := rt.Start(oneSection()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rt.AddCandidate("hi")
	rt.Drain()

	if got := len(rt.Snapshot().Transcript); got != 2 {
		t.Errorf("transcript length = %d, want 2", got)
	}
	if ops := collector.ops(); !reflect.DeepEqual(ops, []string{"followup"}) {
		t.Errorf("observed ops = %v, want [followup]", ops)
	}
	if rt.State() != StateActive {
		t.Error("generator failure must not disturb the session")
	}
}

func TestFinish_SummarizerErrorLeavesArtifactsUnset(t *testing.T) {
	collector := &errorCollector{}
	sum := &fakeSummarizer{err: errors.New("summarize failed")}
	sink := &fakeSink{}
	rt := New(WithSummarizer(sum), WithSink(sink), WithErrorObserver(collector.observe))
	if err := rt.Start(oneSection()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rt.Finish()
	rt.Drain()

	snap := rt.Snapshot()
	if snap.EndedAt == 0 {
		t.Error("finish must complete despite summarizer failure")
	}
	if snap.Artifacts != nil {
		t.Errorf("artifacts = %+v, want nil", snap.Artifacts)
	}
	if ops := collector.ops(); !reflect.DeepEqual(ops, []string{"summarize"}) {
		t.Errorf("observed ops = %v, want [summarize]", ops)
	}
	if sink.last() == nil {
		t.Error("sink should still receive the session")
	}
}

func TestFinish_SinkErrorObserved(t *testing.T) {
	collector := &errorCollector{}
	sink := &fakeSink{err: errors.New("store down")}
	rt := New(WithSink(sink), WithErrorObserver(collector.observe))
	if err := rt.Start(oneSection()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rt.Finish()
	rt.Drain()

	if ops := collector.ops(); !reflect.DeepEqual(ops, []string{"persist"}) {
		t.Errorf("observed ops = %v, want [persist]", ops)
	}
	if rt.Snapshot().EndedAt == 0 {
		t.Error("finish must complete despite sink failure")
	}
}

func TestSetParticipant(t *testing.T) {
	rt := New()
	if err := rt.Start(oneSection()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rt.SetParticipant(domain.Participant{Name: "Ada", Email: "ada@example.com"})

	snap := rt.Snapshot()
	if snap.Participant == nil || snap.Participant.Name != "Ada" {
		t.Errorf("participant = %+v", snap.Participant)
	}
}

func TestTranscript_SectionIDsBelongToScript(t *testing.T) {
	gen := &fakeGenerator{followups: []string{"And then?"}}
	rt := New(WithGenerator(gen))
	scr := twoSections()
	if err := rt.Start(scr); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rt.AddCandidate("first")
	rt.Drain()
	rt.Advance()
	rt.AddCandidate("second")
	rt.Drain()
	rt.Finish()
	rt.Drain()

	valid := map[string]bool{}
	for _, sec := range scr.Sections {
		valid[sec.ID] = true
	}
	for i, u := range rt.Snapshot().Transcript {
		if !valid[u.SectionID] {
			t.Errorf("utterance %d has unknown section %q", i, u.SectionID)
		}
	}
}

func TestTranscript_JSONRoundTrip(t *testing.T) {
	rt := New()
	if err := rt.Start(twoSections()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rt.AddCandidate("one")
	rt.Advance()
	rt.AddCandidate("two")
	rt.Finish()
	rt.Drain()

	original := rt.Snapshot().Transcript
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded []domain.Utterance
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(original, decoded) {
		t.Errorf("round trip changed transcript:\n%v\n%v", original, decoded)
	}
}

func TestSectionProgress_RecordsOverrun(t *testing.T) {
	current := time.UnixMilli(1_700_000_000_000)
	rt := New(WithNow(func() time.Time { return current }))
	if err := rt.Start(twoSections()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	current = current.Add(90 * time.Second) // 30s past the 60s target
	rt.Advance()

	snap := rt.Snapshot()
	first := snap.Sections[0]
	if first.EndedAt == 0 {
		t.Fatal("section 0 progress not closed")
	}
	if first.OverrunSec != 30 {
		t.Errorf("OverrunSec = %d, want 30", first.OverrunSec)
	}
	if snap.Sections[1].StartedAt == 0 {
		t.Error("section 1 progress not started")
	}
}
