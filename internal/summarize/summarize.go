// Package summarize produces per-section aggregate signal from a finished
// transcript. The scoring is a shape-stable heuristic, not a semantic
// summary: word counts drive a bounded score and verbatim candidate
// utterances serve as evidence.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/greenroom-hq/greenroom/internal/domain"
)

const (
	// wordsPerPoint converts candidate word count into a 0-10 score.
	wordsPerPoint = 20
	maxScore      = 10
	maxEvidence   = 2
)

var defaultInsights = []string{
	"Longer, structured answers tend to score higher in this mock.",
	"Quantify impact with metrics where possible.",
}

// Summarizer implements the heuristic summarization pass.
type Summarizer struct{}

// New creates a Summarizer.
func New() *Summarizer { return &Summarizer{} }

type sectionAggregate struct {
	words  int
	quotes []string
}

// Summarize groups candidate utterances by section and scores each section as
// min(10, round(words/20)), with up to two verbatim quotes as evidence.
// Sections appear in first-seen transcript order; a section that only has
// interviewer turns still appears, scored zero.
func (s *Summarizer) Summarize(_ context.Context, transcript []domain.Utterance) (*domain.Artifacts, error) {
	bySection := make(map[string]*sectionAggregate)
	var order []string
	candidateTurns := 0

	for _, u := range transcript {
		agg, ok := bySection[u.SectionID]
		if !ok {
			agg = &sectionAggregate{}
			bySection[u.SectionID] = agg
			order = append(order, u.SectionID)
		}
		if u.Speaker != domain.SpeakerCandidate {
			continue
		}
		candidateTurns++
		agg.words += len(strings.Fields(u.Text))
		if u.Text != "" {
			agg.quotes = append(agg.quotes, u.Text)
		}
	}

	scores := make([]domain.SectionScore, 0, len(order))
	for _, id := range order {
		agg := bySection[id]
		evidence := agg.quotes
		if len(evidence) > maxEvidence {
			evidence = evidence[:maxEvidence]
		}
		scores = append(scores, domain.SectionScore{
			SectionID: id,
			Score:     boundedScore(agg.words),
			Evidence:  evidence,
		})
	}

	return &domain.Artifacts{
		Summary:  fmt.Sprintf("Mock summary: %d candidate turns across %d sections.", candidateTurns, len(order)),
		Insights: append([]string(nil), defaultInsights...),
		Scores:   scores,
	}, nil
}

func boundedScore(words int) int {
	score := (words + wordsPerPoint/2) / wordsPerPoint
	if score > maxScore {
		return maxScore
	}
	return score
}
