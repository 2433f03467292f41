package bus

import (
	"regexp"
	"strings"
)

// TeammateMessage is one teammate-message tag extracted from free text.
// Agents emit these tags inline with their ordinary output; the parser
// pulls every well-formed occurrence and ignores the rest.
type TeammateMessage struct {
	TeammateID string
	Color      string
	Summary    string
	Body       string
}

// teammateMessageRe matches the teammate-message tag. teammate_id is
// required; color and summary are optional attributes in that order. The
// body spans newlines.
var teammateMessageRe = regexp.MustCompile(
	`(?s)<teammate-message\s+teammate_id="([^"]+)"` +
		`(?:\s+color="([^"]*)")?` +
		`(?:\s+summary="([^"]*)")?` +
		`\s*>(.*?)</teammate-message>`)

// ParseTeammateMessages extracts every teammate-message tag from text, in
// order of appearance. Malformed or unterminated tags are not matched and
// produce no entry.
func ParseTeammateMessages(text string) []TeammateMessage {
	matches := teammateMessageRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	out := make([]TeammateMessage, 0, len(matches))
	for _, m := range matches {
		out = append(out, TeammateMessage{
			TeammateID: m[1],
			Color:      m[2],
			Summary:    m[3],
			Body:       strings.TrimSpace(m[4]),
		})
	}
	return out
}
