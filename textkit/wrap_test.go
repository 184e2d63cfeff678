package textkit

import "testing"

func TestWidth(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"abc", 3},
		{"日本語", 6},
	}
	for _, tt := range tests {
		if got := Width(tt.input); got != tt.want {
			t.Errorf("Width(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{"fits unchanged", "hello world", 20, "hello world"},
		{"wraps at space", "aaa bbb ccc", 7, "aaa bbb\nccc"},
		{"one word per line", "hello world", 5, "hello\nworld"},
		{"long word hard break", "abcdefghij", 4, "abcd\nefgh\nij"},
		{"zero width unchanged", "hello world", 0, "hello world"},
		{"keeps existing newlines", "short\naaa bbb ccc", 7, "short\naaa bbb\nccc"},
		{"keeps blank lines", "a\n\nb", 5, "a\n\nb"},
		{"wide runes counted as two cells", "日本語のテキスト", 6, "日本語\nのテキ\nスト"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Wrap(tt.input, tt.width); got != tt.want {
				t.Errorf("Wrap(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.want)
			}
		})
	}
}

func TestWrapIndent(t *testing.T) {
	got := WrapIndent("one two three four", 9, "  ")
	want := "one two\n  three\n  four"
	if got != want {
		t.Errorf("WrapIndent() = %q, want %q", got, want)
	}
}

func TestWrapLinesStayWithinWidth(t *testing.T) {
	const width = 10
	wrapped := Wrap("the quick brown fox jumps over the lazy dog 日本語のテキストです", width)
	for i, line := range splitLines(wrapped) {
		if w := Width(line); w > width {
			t.Errorf("line %d %q has width %d, want at most %d", i, line, w, width)
		}
	}
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return append(lines, s[start:])
}

func TestTruncateMiddle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		want     string
	}{
		{"fits unchanged", "hello", 10, "hello"},
		{"even split", "abcdefghij", 5, "ab…ij"},
		{"head gets extra cell", "abcdefgh", 4, "ab…h"},
		{"narrow truncates right", "abcdef", 2, "ab"},
		{"zero width", "abc", 0, ""},
		{"wide runes respect cells", "日本語テキスト", 7, "日…ト"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateMiddle(tt.input, tt.maxWidth); got != tt.want {
				t.Errorf("TruncateMiddle(%q, %d) = %q, want %q", tt.input, tt.maxWidth, got, tt.want)
			}
		})
	}

	for _, width := range []int{1, 3, 5, 8} {
		if got := TruncateMiddle("a long enough string to cut", width); Width(got) > width {
			t.Errorf("TruncateMiddle width %d produced %q with width %d", width, got, Width(got))
		}
	}
}
