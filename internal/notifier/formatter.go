package notifier

import (
	"html"
	"strings"
	"unicode/utf8"
)

// maxMessage stays under the Bot API limit of 4096 characters once the
// <pre> wrapper is added.
const maxMessage = 4000

// FormatReply escapes text for HTML parse mode and wraps it in <pre> so the
// tables keep their alignment. Long text is split on line boundaries.
func FormatReply(text string) []string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}

	var (
		parts []string
		cur   strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, "<pre>"+cur.String()+"</pre>")
			cur.Reset()
		}
	}
	for _, line := range strings.Split(text, "\n") {
		escaped := html.EscapeString(line)
		for len(escaped) > maxMessage {
			flush()
			cut := safeCut(escaped, maxMessage)
			cur.WriteString(escaped[:cut])
			flush()
			escaped = escaped[cut:]
		}
		if cur.Len()+len(escaped)+1 > maxMessage {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(escaped)
	}
	flush()
	return parts
}

// safeCut backs n off so it splits neither an HTML entity nor a rune.
func safeCut(s string, n int) int {
	if amp := strings.LastIndexByte(s[:n], '&'); amp > 0 && !strings.Contains(s[amp:n], ";") {
		n = amp
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}
