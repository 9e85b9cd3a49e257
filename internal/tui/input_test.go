package tui

import (
	"strings"
	"testing"
)

func TestEditRuneAddCharacters(t *testing.T) {
	tests := []struct {
		name  string
		start string
		key   string
		want  string
	}{
		{"append to empty", "", "a", "a"},
		{"append letter", "hw", "1", "hw1"},
		{"append space", "lab", " ", "lab "},
		{"append special", "abc", "!", "abc!"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := editRune(tc.start, tc.key)
			if got != tc.want {
				t.Errorf("editRune(%q, %q) = %q, want %q", tc.start, tc.key, got, tc.want)
			}
		})
	}
}

func TestEditRuneBackspace(t *testing.T) {
	tests := []struct {
		name  string
		start string
		want  string
	}{
		{"backspace on single char", "a", ""},
		{"backspace on longer string", "hello", "hell"},
		{"backspace on empty does nothing", "", ""},
		{"backspace removes whole rune", "hellé", "hell"},
		{"backspace removes emoji", "hello\U0001f600", "hello"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := editRune(tc.start, "backspace")
			if got != tc.want {
				t.Errorf("editRune(%q, 'backspace') = %q, want %q", tc.start, got, tc.want)
			}
		})
	}
}

func TestEditRuneIgnoresNamedKeys(t *testing.T) {
	for _, key := range []string{"enter", "esc", "up", "down", "ctrl+c", "tab", "shift+enter"} {
		t.Run(key, func(t *testing.T) {
			if got := editRune("hello", key); got != "hello" {
				t.Errorf("editRune(%q, %q) = %q, want unchanged", "hello", key, got)
			}
		})
	}
}

func TestEditRuneMaxInputLen(t *testing.T) {
	atLimit := strings.Repeat("a", maxInputLen)
	belowLimit := strings.Repeat("a", maxInputLen-1)

	if got := editRune(atLimit, "b"); got != atLimit {
		t.Errorf("at limit accepted a new rune, len=%d", len([]rune(got)))
	}
	if got := editRune(belowLimit, "b"); got != belowLimit+"b" {
		t.Errorf("below limit rejected a new rune, len=%d", len([]rune(got)))
	}
	if got := editRune(atLimit, "backspace"); got != atLimit[:len(atLimit)-1] {
		t.Error("backspace at limit did not shorten the input")
	}
}

func TestTruncStr(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"under limit", "hello", 10, "hello"},
		{"at limit", "hello", 5, "hello"},
		{"over limit", "hello world", 5, "hell…"},
		{"empty string", "", 5, ""},
		{"single char over", "ab", 1, "…"},
		{"zero width", "ab", 0, ""},
		{"CJK chars", "你好世界", 3, "你好…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncStr(tt.s, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncStr(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateToHeightLimitsLines(t *testing.T) {
	input := "line1\nline2\nline3\nline4\nline5\n"
	result := truncateToHeight(input, 3)

	if lines := strings.Count(result, "\n"); lines > 3 {
		t.Errorf("truncateToHeight(5 lines, 3) produced %d newlines, want <= 3", lines)
	}
	if !strings.Contains(result, "line1") {
		t.Errorf("truncateToHeight result missing first line: %q", result)
	}
	if strings.Contains(result, "line4") {
		t.Errorf("truncateToHeight result should not contain line4: %q", result)
	}
}

func TestTruncateToHeightNonPositiveMaxReturnsAll(t *testing.T) {
	input := "line1\nline2\n"
	for _, limit := range []int{0, -1} {
		if got := truncateToHeight(input, limit); got != input {
			t.Errorf("truncateToHeight(%d) = %q, want input unchanged", limit, got)
		}
	}
}

func TestRenderInputMasksPassword(t *testing.T) {
	out := renderInput("> ", "hunter2", "password", true, true)
	if strings.Contains(out, "hunter2") {
		t.Errorf("masked input leaked the password: %q", out)
	}
	if !strings.Contains(out, strings.Repeat("•", 7)) {
		t.Errorf("masked input should show one bullet per rune: %q", out)
	}
}

func TestRenderInputPlaceholder(t *testing.T) {
	out := renderInput("/ ", "", "filter", false, false)
	if !strings.Contains(out, "filter") {
		t.Errorf("empty unfocused input should show the placeholder: %q", out)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{2048, "2.0 KB"},
		{3 * 1024 * 1024, "3.0 MB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.n); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
