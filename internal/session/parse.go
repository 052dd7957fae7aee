package session

import (
	"regexp"
	"strconv"
	"strings"
)

// ParsedAnswer is one numbered answer found in a message.
type ParsedAnswer struct {
	Number int
	Text   string
}

var answerLine = regexp.MustCompile(`^(\d+)[).]\s*(.+)$`)

// ParseAnswers extracts lines of the form "3. text" or "3) text". Other
// lines are ignored. Numbers are not range-checked here; Ingest does that.
func ParseAnswers(text string) []ParsedAnswer {
	var out []ParsedAnswer
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		m := answerLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		body := strings.TrimSpace(m[2])
		if body == "" {
			continue
		}
		out = append(out, ParsedAnswer{Number: n, Text: body})
	}
	return out
}
