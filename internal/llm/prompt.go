package llm

import (
	"github.com/joseph-ayodele/dataset-generator/internal/format"
)

// BuildUserPrompt embeds the fragment and the target format name.
func BuildUserPrompt(p format.Policy, fragment string) string {
	return "Convert this content into " + string(p.Format) + ". Content: " + fragment
}

// BuildMessages returns the system + user pair sent for one fragment.
func BuildMessages(p format.Policy, fragment string) []Message {
	return []Message{
		{Role: RoleSystem, Content: p.SystemMessage()},
		{Role: RoleUser, Content: BuildUserPrompt(p, fragment)},
	}
}
