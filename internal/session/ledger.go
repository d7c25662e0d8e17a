package session

import "github.com/greenroom-hq/greenroom/internal/domain"

// Ledger is the append-only transcript. Insertion order is chronological and
// is the canonical order for replay and analysis; entries are never reordered
// or mutated in place.
type Ledger struct {
	utterances []domain.Utterance
}

// Append records one utterance. It validates nothing beyond shape and always
// succeeds.
func (l *Ledger) Append(u domain.Utterance) {
	l.utterances = append(l.utterances, u)
}

// Len returns the number of recorded utterances.
func (l *Ledger) Len() int { return len(l.utterances) }

// Utterances returns a copy of the full ordered transcript.
func (l *Ledger) Utterances() []domain.Utterance {
	out := make([]domain.Utterance, len(l.utterances))
	copy(out, l.utterances)
	return out
}

// BySection returns the utterances tagged with the given section, in order.
func (l *Ledger) BySection(sectionID string) []domain.Utterance {
	var out []domain.Utterance
	for _, u := range l.utterances {
		if u.SectionID == sectionID {
			out = append(out, u)
		}
	}
	return out
}

// BySpeaker returns the utterances from one speaker, in order.
func (l *Ledger) BySpeaker(speaker domain.Speaker) []domain.Utterance {
	var out []domain.Utterance
	for _, u := range l.utterances {
		if u.Speaker == speaker {
			out = append(out, u)
		}
	}
	return out
}
