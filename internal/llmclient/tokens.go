package llmclient

import "strings"

// CountTokens is a coarse token estimate (~4 bytes per token for code and
// JSON). Good enough for budgeting prompt context; not a real tokenizer.
func CountTokens(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
