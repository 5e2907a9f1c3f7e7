package wannier

import (
	"strings"

	"github.com/leaanthony/go-ansi-parser"
)

const escape = "\x1b"

// plainText removes ANSI escape sequences, which appear when a run's log was
// captured from a terminal. Lines the parser rejects are kept unchanged.
func plainText(text string) string {
	if !strings.Contains(text, escape) {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !strings.Contains(line, escape) {
			continue
		}
		elements, err := ansi.Parse(line)
		if err != nil {
			continue
		}
		var b strings.Builder
		for _, element := range elements {
			b.WriteString(element.Label)
		}
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n")
}
