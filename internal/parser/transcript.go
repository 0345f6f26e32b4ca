package parser

import (
	"regexp"
	"strings"

	"sharevault/internal/models"
)

// timestampPattern matches the bracketed prefix of an exported chat line, e.g.
// "[01/02/23, 10:00:00 AM]" or "[01.02.2023, 22:15]". Some exports put a
// left-to-right mark before the bracket and a narrow no-break space before the meridiem.
var timestampPattern = regexp.MustCompile(
	`(?m)^\x{200E}?(\[\d{2}[./]\d{2}[./]\d{2,4}, \d{1,2}:\d{2}(?::\d{2})?(?:[ \x{202F}][AP]M)?\])`,
)

// SplitMessages cuts a transcript into messages at every line-leading timestamp.
// Text before the first timestamp is dropped. No timestamps means no messages.
func SplitMessages(text string) []models.Message {
	matches := timestampPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	messages := make([]models.Message, 0, len(matches))
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		messages = append(messages, models.Message{
			Timestamp: text[m[2]:m[3]],
			Body:      strings.TrimSpace(text[m[1]:end]),
		})
	}
	return messages
}

// trimTimestamp strips the surrounding brackets. Malformed input is sliced
// best-effort and never panics.
func trimTimestamp(ts string) string {
	ts = strings.TrimPrefix(strings.TrimSpace(ts), "\u200e")
	ts = strings.TrimPrefix(ts, "[")
	if i := strings.Index(ts, "]"); i >= 0 {
		ts = ts[:i]
	}
	return ts
}
