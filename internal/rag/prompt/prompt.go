package prompt

import (
	"strings"

	"github.com/avaldes/ragdocs/internal/config"
)

// System returns the fixed advisor instruction used by all providers.
func System() string {
	return config.SystemPrompt
}

// BuildUserPrompt assembles the final user message: optional chat history,
// retrieved context, then the question. History lines are the JSON payloads
// of previous turns, oldest first.
func BuildUserPrompt(question string, matches []string, messageHistory []string) string {
	var b strings.Builder

	if len(messageHistory) > 0 {
		b.WriteString("Message history (question is what the user asked, answer is what you replied):\n")
		b.WriteString(strings.Join(messageHistory, "\n"))
		b.WriteString("\n\n")
	}

	b.WriteString("Context:\n")
	b.WriteString(strings.Join(matches, "\n"))
	b.WriteString("\n\nUser Question: ")
	b.WriteString(question)
	return b.String()
}
