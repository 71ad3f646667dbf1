package msyll

import "testing"

func TestFirstAndRestCodepoints(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		first    string
		rest     string
	}{
		{"empty", "", "", ""},
		{"ascii", "abc", "a", "bc"},
		{"single consonant", "က", "က", ""},
		{"consonant plus tail", "ကျ", "က", "ျ"},
		{"four codepoints", "ကိုး", "က", "ိုး"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FirstCodepoint(tt.in); got != tt.first {
				t.Errorf("FirstCodepoint(%q) = %q, want %q", tt.in, got, tt.first)
			}
			if got := RestCodepoints(tt.in); got != tt.rest {
				t.Errorf("RestCodepoints(%q) = %q, want %q", tt.in, got, tt.rest)
			}
		})
	}
}

func TestClampsTruncatedSequence(t *testing.T) {
	// 0xE1 claims a 3-byte sequence but only one byte is present.
	truncated := string([]byte{0xE1})
	if got := FirstCodepoint(truncated); got != truncated {
		t.Errorf("FirstCodepoint(truncated) = %q, want %q", got, truncated)
	}
	if got := RestCodepoints(truncated); got != "" {
		t.Errorf("RestCodepoints(truncated) = %q, want empty", got)
	}
}

func TestRoundTrip(t *testing.T) {
	s := "ကျန်းမာ"
	if got := FirstCodepoint(s) + RestCodepoints(s); got != s {
		t.Errorf("FirstCodepoint+RestCodepoints = %q, want %q", got, s)
	}
}
