// Package script loads and validates interview scripts. The session runtime
// trusts scripts that passed validation here; it does not re-validate.
package script

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/greenroom-hq/greenroom/internal/domain"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid script")

// LoadFile reads a YAML script file and validates it.
func LoadFile(path string) (*domain.Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML script data and validates it.
func Parse(data []byte) (*domain.Script, error) {
	var s domain.Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the boundary contract for scripts: at least one section,
// unique non-empty section ids, non-empty prompts, positive durations.
func Validate(s *domain.Script) error {
	if len(s.Sections) == 0 {
		return fmt.Errorf("%w: script has no sections", ErrInvalid)
	}
	seen := make(map[string]struct{}, len(s.Sections))
	for i, sec := range s.Sections {
		if strings.TrimSpace(sec.ID) == "" {
			return fmt.Errorf("%w: section %d has an empty id", ErrInvalid, i)
		}
		if _, dup := seen[sec.ID]; dup {
			return fmt.Errorf("%w: duplicate section id %q", ErrInvalid, sec.ID)
		}
		seen[sec.ID] = struct{}{}
		if strings.TrimSpace(sec.Prompt) == "" {
			return fmt.Errorf("%w: section %q has an empty prompt", ErrInvalid, sec.ID)
		}
		if sec.TargetDurationSec <= 0 {
			return fmt.Errorf("%w: section %q has non-positive duration %d", ErrInvalid, sec.ID, sec.TargetDurationSec)
		}
	}
	return nil
}
