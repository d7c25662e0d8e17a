package followup

import (
	_ "embed"
	"regexp"
)

//go:embed prompts/system.txt
var systemPrompt string

//go:embed prompts/user.txt
var userPromptTemplate string

var templateVarRegex = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// renderTemplate substitutes {{var}} placeholders. Unknown variables render
// as empty strings.
func renderTemplate(tpl string, vars map[string]string) string {
	return templateVarRegex.ReplaceAllStringFunc(tpl, func(m string) string {
		key := templateVarRegex.FindStringSubmatch(m)[1]
		return vars[key]
	})
}
