package tui

import "strings"

// renderAnswer colours typed rune by rune against expected. Missing
// positions show as underscores and extra runes count as wrong.
func renderAnswer(expected, typed []rune) string {
	var b strings.Builder
	for i := 0; i < max(len(expected), len(typed)); i++ {
		switch {
		case i >= len(typed):
			b.WriteString(pendingStyle.Render("_"))
		case i < len(expected) && typed[i] == expected[i]:
			b.WriteString(correctStyle.Render(string(typed[i])))
		default:
			b.WriteString(incorrectStyle.Render(string(typed[i])))
		}
	}
	return b.String()
}
