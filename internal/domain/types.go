// Package domain contains the core interview types passed between layers.
package domain

// Speaker identifies which side of the interview produced an utterance.
type Speaker string

const (
	SpeakerInterviewer Speaker = "interviewer"
	SpeakerCandidate   Speaker = "candidate"
)

// Section is one scripted question with a target duration.
type Section struct {
	ID                string `json:"id" yaml:"id"`
	Prompt            string `json:"prompt" yaml:"prompt"`
	TargetDurationSec int    `json:"targetDurationSec" yaml:"targetDurationSec"`
}

// Script is a validated, immutable question set. Section order is the
// interview order.
type Script struct {
	Title    string    `json:"title" yaml:"title"`
	Sections []Section `json:"sections" yaml:"sections"`
}

// Utterance is one turn of dialogue, timestamped and tagged with the section
// that was active when it was recorded.
type Utterance struct {
	Speaker   Speaker `json:"speaker"`
	Text      string  `json:"text"`
	AtMs      int64   `json:"atMs"`
	SectionID string  `json:"sectionId"`
}

// Participant holds optional candidate identity info.
type Participant struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// SectionProgress is a soft per-section progress record. It tracks when a
// section was entered and left, plus any overrun past its target duration.
// It is informational only, never a scheduling authority.
type SectionProgress struct {
	ID         string `json:"id"`
	StartedAt  int64  `json:"startedAt,omitempty"`
	EndedAt    int64  `json:"endedAt,omitempty"`
	OverrunSec int    `json:"overrunSec,omitempty"`
}

// SectionScore is a per-section aggregate produced by summarization.
type SectionScore struct {
	SectionID string   `json:"sectionId"`
	Score     int      `json:"score"`
	Evidence  []string `json:"evidence"`
}

// Artifacts is the post-session derived data.
type Artifacts struct {
	Summary  string         `json:"summary,omitempty"`
	Insights []string       `json:"insights,omitempty"`
	Scores   []SectionScore `json:"scores,omitempty"`
	Quotes   []string       `json:"quotes,omitempty"`
}

// Session is one complete run of a Script by one candidate. It is created at
// start, mutated throughout the interview, and frozen once EndedAt is set.
// The script is held by value so later script edits never affect a session.
type Session struct {
	ID          string            `json:"id"`
	Script      Script            `json:"script"`
	StartedAt   int64             `json:"startedAt"`
	EndedAt     int64             `json:"endedAt,omitempty"`
	Participant *Participant      `json:"participant,omitempty"`
	Sections    []SectionProgress `json:"sections"`
	Transcript  []Utterance       `json:"transcript"`
	Artifacts   *Artifacts        `json:"artifacts,omitempty"`
}

// Ended reports whether the session has finished.
func (s *Session) Ended() bool {
	return s.EndedAt != 0
}

// CandidateTurns returns the number of candidate utterances in the transcript.
func (s *Session) CandidateTurns() int {
	n := 0
	for _, u := range s.Transcript {
		if u.Speaker == SpeakerCandidate {
			n++
		}
	}
	return n
}
