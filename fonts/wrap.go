package fonts

import (
	"strings"
)

// Measurer measures text at a font size.
type Measurer interface {
	Measure(text string, size float64) float64
}

// WrapText breaks text into lines no wider than maxWidth. Explicit newlines
// always break. Words are wrapped greedily; a word wider than maxWidth is
// broken at character boundaries so no characters are lost. The returned
// height is the number of lines times size*lineHeight. Empty text yields a
// single empty line.
func WrapText(m Measurer, text string, size, lineHeight, maxWidth float64) ([]string, float64) {
	advance := size * lineHeight
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		lines = append(lines, wrapParagraph(m, para, size, maxWidth)...)
	}
	return lines, float64(len(lines)) * advance
}

func wrapParagraph(m Measurer, para string, size, maxWidth float64) []string {
	words := strings.Fields(para)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	line := ""
	for _, word := range words {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if m.Measure(candidate, size) <= maxWidth {
			line = candidate
			continue
		}
		if line != "" {
			lines = append(lines, line)
			line = ""
		}
		if m.Measure(word, size) <= maxWidth {
			line = word
			continue
		}
		pieces := breakWord(m, word, size, maxWidth)
		lines = append(lines, pieces[:len(pieces)-1]...)
		line = pieces[len(pieces)-1]
	}
	return append(lines, line)
}

// breakWord splits word at rune boundaries; every piece holds at least one
// rune.
func breakWord(m Measurer, word string, size, maxWidth float64) []string {
	var pieces []string
	runes := []rune(word)
	start := 0
	for start < len(runes) {
		end := start + 1
		for end < len(runes) && m.Measure(string(runes[start:end+1]), size) <= maxWidth {
			end++
		}
		pieces = append(pieces, string(runes[start:end]))
		start = end
	}
	return pieces
}
