package brain

import (
	"strings"
	"testing"
)

func TestIsRefusal(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"As an AI, I cannot access that link", true},
		{"I CANNOT BROWSE the web.", true},
		{"I’m unable to access external sites", true},
		{"Readers on Reddit were sharply divided.", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsRefusal(tt.text); got != tt.want {
			t.Errorf("IsRefusal(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"see [the report](https://example.com/r) now", "see the report [link] now"},
		{"raw https://example.com/a?b=c here", "raw [link] here"},
		{"[https://x.com](https://x.com)", "[link]"},
		{"www.example.org/page is cited", "[link] is cited"},
		{"no links at all", "no links at all"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFallbackIsDeterministicAndBounded(t *testing.T) {
	short := "A short post."
	if got := Fallback(short); got != short {
		t.Errorf("short text should pass through, got %q", got)
	}

	long := strings.Repeat("word ", 100)
	got := Fallback(long)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("long text should end with ellipsis: %q", got)
	}
	if n := len([]rune(got)); n > fallbackLen+3 {
		t.Errorf("fallback too long: %d", n)
	}
	if Fallback(long) != got {
		t.Error("fallback must be deterministic")
	}
}
