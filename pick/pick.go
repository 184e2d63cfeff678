// Package pick provides structured entries for selection lists and the
// shorthand string parser that builds them.
//
// Hosts render entries however they like; callers can mix free-text
// shorthand ("Open:: opens a file") with fully structured entries in the
// same list.
package pick

import "strings"

// Marker prefixes a string that parses as a visual separator row.
const Marker = "-----"

const (
	labelDelim  = "::"
	detailDelim = "??"
)

// Entry is one row of a selection list.
type Entry struct {
	// Label is the primary display text, or the caption for separators.
	Label string

	// Description is secondary text shown next to the label.
	Description string

	// Detail is a longer line rendered beneath the entry.
	Detail string

	// Separator marks the entry as a non-selectable visual divider.
	Separator bool

	// AlwaysShow keeps the entry visible under incremental filtering.
	AlwaysShow bool
}

// Parse converts an annotated shorthand string into an Entry.
//
// Strings beginning with the separator marker "-----" produce a separator
// whose caption is the remainder of the string with leading whitespace
// removed; delimiters inside the caption are not interpreted. Any other
// string is cut on the first "::" into label and description, and the tail
// is cut on the first "??" into description and detail. Later occurrences
// of "::" stay joined in the tail, so "A::B::C??D" keeps "B::C" as the
// description. All fields are trimmed of surrounding whitespace.
//
// Parsing is total: every input, including the empty string, produces a
// well-formed Entry. Non-separator entries are marked AlwaysShow so the
// host's incremental filter never hides them.
func Parse(s string) Entry {
	if strings.HasPrefix(s, Marker) {
		return Entry{
			Label:     strings.TrimLeft(s[len(Marker):], " \t\r\n"),
			Separator: true,
		}
	}

	label := s
	desc := ""
	rest := s
	if head, tail, ok := strings.Cut(s, labelDelim); ok {
		label = head
		desc = tail
		rest = tail
	}

	detail := ""
	if head, tail, ok := strings.Cut(rest, detailDelim); ok {
		desc = head
		detail = tail
	}

	return Entry{
		Label:       strings.TrimSpace(label),
		Description: strings.TrimSpace(desc),
		Detail:      strings.TrimSpace(detail),
		AlwaysShow:  true,
	}
}

// ParseAll converts each shorthand string into an Entry.
func ParseAll(items []string) []Entry {
	entries := make([]Entry, len(items))
	for i, s := range items {
		entries[i] = Parse(s)
	}
	return entries
}

// NewSeparator creates a separator entry with an optional caption.
func NewSeparator(label string) Entry {
	return Entry{Label: label, Separator: true}
}

// String renders the entry in shorthand form. Plain entries round-trip
// through Parse; entries whose fields contain delimiter tokens may not.
func (e Entry) String() string {
	if e.Separator {
		if e.Label == "" {
			return Marker
		}
		return Marker + " " + e.Label
	}

	var b strings.Builder
	b.WriteString(e.Label)
	if e.Description != "" || e.Detail != "" {
		b.WriteString(labelDelim)
		b.WriteString(e.Description)
	}
	if e.Detail != "" {
		b.WriteString(detailDelim)
		b.WriteString(e.Detail)
	}
	return b.String()
}
