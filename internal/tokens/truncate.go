// Package tokens bounds prompt material to a token budget so oversized
// candidate answers cannot blow the generation collaborator's context.
package tokens

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Truncator counts and truncates text with a tiktoken codec.
type Truncator struct {
	codec tokenizer.Codec
	mu    sync.Mutex
}

// NewTruncator returns a truncator on the cl100k_base encoding, a reasonable
// cross-model approximation for budget enforcement.
func NewTruncator() (*Truncator, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer: %w", err)
	}
	return &Truncator{codec: codec}, nil
}

// Count returns the token count of text.
func (t *Truncator) Count(text string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids, _, err := t.codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("encoding text: %w", err)
	}
	return len(ids), nil
}

// Truncate returns text cut down to at most budget tokens. Text within the
// budget comes back unchanged. On tokenizer failure the original text is
// returned; budget enforcement is an enhancement, not a gate.
func (t *Truncator) Truncate(text string, budget int) string {
	if budget <= 0 {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	ids, _, err := t.codec.Encode(text)
	if err != nil || len(ids) <= budget {
		return text
	}
	out, err := t.codec.Decode(ids[:budget])
	if err != nil {
		return text
	}
	return out
}
