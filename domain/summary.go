package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// Words that indicate the user wants the board changed. Their presence vetoes
// the local shortcut so "summarize and then delete X" still reaches the
// assistant.
var mutationVerbs = map[string]struct{}{
	"add":    {},
	"create": {},
	"move":   {},
	"delete": {},
	"remove": {},
	"rename": {},
	"update": {},
	"change": {},
	"edit":   {},
}

// IsSummaryRequest reports whether the latest user message is a pure request
// to summarize the board. Matching requests are answered locally with
// Summarize and never reach the completion provider.
func IsSummaryRequest(messages []ChatMessage) bool {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != RoleUser {
			continue
		}
		content := strings.ToLower(messages[i].Content)
		if !strings.Contains(content, "summar") {
			return false
		}
		for _, word := range splitWords(content) {
			if _, ok := mutationVerbs[word]; ok {
				return false
			}
		}
		return true
	}
	return false
}

// Summarize renders a deterministic textual summary of the board: column
// names, card counts, and up to three card titles per column.
func Summarize(b Board) string {
	lines := []string{fmt.Sprintf("Summary: %d columns, %d cards.", len(b.Columns), len(b.Cards))}

	for _, col := range b.Columns {
		titles := make([]string, 0, len(col.CardIDs))
		for _, cardID := range col.CardIDs {
			if card, ok := b.Cards[cardID]; ok {
				titles = append(titles, card.Title)
			}
		}
		if len(titles) == 0 {
			lines = append(lines, fmt.Sprintf("%s (0): No cards.", col.Title))
			continue
		}

		preview := strings.Join(titles[:min(len(titles), 3)], "; ")
		if len(titles) > 3 {
			preview += "; ..."
		}
		lines = append(lines, fmt.Sprintf("%s (%d): %s", col.Title, len(titles), preview))
	}

	return strings.Join(lines, "\n")
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
}
