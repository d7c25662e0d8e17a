package followup

import (
	"regexp"
	"strings"
)

// maxFollowups caps how many normalized follow-ups survive.
const maxFollowups = 3

var (
	// surrounding straight or curly quote characters
	quoteRegex = regexp.MustCompile(`^["'\x{201C}\x{201D}\x{2018}\x{2019}]+|["'\x{201C}\x{201D}\x{2018}\x{2019}]+$`)
	// leading bullet or number markers, e.g. "- ", "1) ", "• "
	bulletRegex = regexp.MustCompile(`^(?:[-*\x{2022}\d]+[.)\]]?\s*)`)
	// leading role/section labels, e.g. "Agent:", "Follow-up:"
	labelRegex = regexp.MustCompile(`(?i)^(?:agent|interviewer|intro|follow[-\s]?up|question)\s*:\s*`)
	// runs of whitespace
	spaceRegex = regexp.MustCompile(`\s+`)
	// trailing sentence punctuation replaced by a question mark
	trailingPunctRegex = regexp.MustCompile(`[.!]+$`)
)

// Normalize turns raw model output into at most three clean follow-up
// questions. A raw response of exactly "no" (case-insensitive) means no
// follow-up is warranted and yields an empty list. Otherwise the text is
// split on commas and each candidate is stripped of surrounding quotes,
// bullet/number markers, and role-label prefixes, then forced to end in a
// question mark. Empty results are dropped; order is preserved.
func Normalize(raw string) []string {
	text := strings.TrimSpace(raw)
	if strings.EqualFold(text, "no") {
		return nil
	}

	var out []string
	for _, part := range strings.Split(text, ",") {
		if q, ok := normalizeOne(part); ok {
			out = append(out, q)
			if len(out) == maxFollowups {
				break
			}
		}
	}
	return out
}

func normalizeOne(s string) (string, bool) {
	t := strings.TrimSpace(s)
	t = quoteRegex.ReplaceAllString(t, "")
	t = bulletRegex.ReplaceAllString(t, "")
	t = labelRegex.ReplaceAllString(t, "")
	t = strings.TrimSpace(spaceRegex.ReplaceAllString(t, " "))
	if t == "" {
		return "", false
	}
	if !strings.HasSuffix(t, "?") {
		t = trailingPunctRegex.ReplaceAllString(t, "")
		t += "?"
	}
	return t, true
}
