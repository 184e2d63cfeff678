package textkit

import (
	"strings"

	"github.com/rivo/uniseg"
)

// Width returns the display width of s in terminal cells. CJK characters
// and emoji count as two cells.
func Width(s string) int { return uniseg.StringWidth(s) }

// Wrap breaks s into lines no wider than width display cells. Existing
// newlines are kept as hard breaks, lines wrap at spaces, and a single
// word wider than the limit is split at grapheme boundaries. Runs of
// spaces collapse when a line wraps. A width of zero or less returns s
// unchanged.
func Wrap(s string, width int) string {
	return WrapIndent(s, width, "")
}

// WrapIndent wraps like Wrap and prefixes continuation lines with indent.
// The indent's own width counts against the limit.
func WrapIndent(s string, width int, indent string) string {
	if width <= 0 {
		return s
	}

	var out []string
	for _, line := range strings.Split(s, "\n") {
		out = append(out, wrapLine(line, width, indent)...)
	}
	return strings.Join(out, "\n")
}

func wrapLine(line string, width int, indent string) []string {
	if uniseg.StringWidth(line) <= width {
		return []string{line}
	}

	words := strings.Fields(line)
	if len(words) == 0 {
		return []string{line}
	}

	contWidth := width - uniseg.StringWidth(indent)
	if contWidth < 1 {
		contWidth = 1
	}

	var lines []string
	cur := ""
	curWidth := 0
	limit := width

	flush := func() {
		if len(lines) == 0 {
			lines = append(lines, cur)
		} else {
			lines = append(lines, indent+cur)
		}
		cur = ""
		curWidth = 0
		limit = contWidth
	}

	for _, word := range words {
		w := uniseg.StringWidth(word)
		for {
			avail := limit - curWidth
			if cur != "" {
				avail--
			}
			if w <= avail {
				if cur != "" {
					cur += " "
					curWidth++
				}
				cur += word
				curWidth += w
				break
			}
			if cur != "" {
				flush()
				continue
			}
			head, tail := splitAtWidth(word, limit)
			cur = head
			curWidth = uniseg.StringWidth(head)
			flush()
			word = tail
			w = uniseg.StringWidth(tail)
			if word == "" {
				break
			}
		}
	}
	if cur != "" {
		flush()
	}
	return lines
}

// splitAtWidth cuts s at the widest grapheme boundary that keeps the head
// within width cells. The head always holds at least one grapheme so
// callers make progress even when width is narrower than the first
// grapheme.
func splitAtWidth(s string, width int) (string, string) {
	g := uniseg.NewGraphemes(s)
	w := 0
	cut := 0
	for g.Next() {
		gw := g.Width()
		if cut > 0 && w+gw > width {
			break
		}
		w += gw
		_, cut = g.Positions()
	}
	return s[:cut], s[cut:]
}

// TruncateMiddle shortens s to at most maxWidth display cells by cutting
// out the middle and joining the halves with an ellipsis. Below the width
// needed for head, ellipsis, and tail the string is truncated from the
// right instead. A maxWidth of zero or less yields the empty string.
func TruncateMiddle(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if uniseg.StringWidth(s) <= maxWidth {
		return s
	}

	const ellipsis = "…"
	if maxWidth < 3 {
		head, _ := splitAtWidthStrict(s, maxWidth)
		return head
	}

	remaining := maxWidth - 1
	headWidth := (remaining + 1) / 2
	tailWidth := remaining / 2

	head, _ := splitAtWidthStrict(s, headWidth)
	tail := suffixAtWidth(s, tailWidth)
	return head + ellipsis + tail
}

// splitAtWidthStrict is splitAtWidth without the at-least-one-grapheme
// floor: the head may be empty when nothing fits.
func splitAtWidthStrict(s string, width int) (string, string) {
	g := uniseg.NewGraphemes(s)
	w := 0
	cut := 0
	for g.Next() {
		gw := g.Width()
		if w+gw > width {
			break
		}
		w += gw
		_, cut = g.Positions()
	}
	return s[:cut], s[cut:]
}

// suffixAtWidth returns the widest suffix of s within width cells,
// cutting at grapheme boundaries.
func suffixAtWidth(s string, width int) string {
	g := uniseg.NewGraphemes(s)
	type span struct {
		from  int
		width int
	}
	var spans []span
	for g.Next() {
		from, _ := g.Positions()
		spans = append(spans, span{from: from, width: g.Width()})
	}

	w := 0
	start := len(s)
	for i := len(spans) - 1; i >= 0; i-- {
		if w+spans[i].width > width {
			break
		}
		w += spans[i].width
		start = spans[i].from
	}
	return s[start:]
}
