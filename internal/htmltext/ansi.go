package htmltext

import "strings"

const (
	ansiReset     = "\x1b[0m"
	ansiBold      = "\x1b[1m"
	ansiItalic    = "\x1b[3m"
	ansiUnderline = "\x1b[4m"
)

// ANSI renders spans for a terminal. Links are underlined and followed by
// their target in angle brackets.
func ANSI(spans []Span) string {
	var b strings.Builder
	for i, span := range spans {
		if span.Text == "\n" || span.Bullet {
			b.WriteString(span.Text)
			continue
		}
		codes := ""
		if span.Bold || span.Size > SizeNormal {
			codes += ansiBold
		}
		if span.Italic {
			codes += ansiItalic
		}
		if span.Href != "" {
			codes += ansiUnderline
		}
		text := span.Text
		if span.Size == SizeXLarge {
			text = strings.ToUpper(text)
		}
		if codes == "" {
			b.WriteString(text)
		} else {
			b.WriteString(codes)
			b.WriteString(text)
			b.WriteString(ansiReset)
		}
		if span.Href != "" && !nextSharesLink(spans, i) {
			b.WriteString(" <")
			b.WriteString(span.Href)
			b.WriteString(">")
		}
	}
	return b.String()
}

func nextSharesLink(spans []Span, i int) bool {
	return i+1 < len(spans) && spans[i+1].Href == spans[i].Href && spans[i+1].Text != "\n"
}
