package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	defer func(v, c string) { Version, GitCommit = v, c }(Version, GitCommit)

	tests := []struct {
		version, commit, want string
	}{
		{"dev", "unknown", "dev"},
		{"1.2.0", "", "1.2.0"},
		{"1.2.0", "0123456789abcdef", "1.2.0+0123456"},
		{"1.2.0", "abc", "1.2.0+abc"},
	}
	for _, tt := range tests {
		Version, GitCommit = tt.version, tt.commit
		if got := String(); got != tt.want {
			t.Errorf("String() with %q/%q = %q, want %q", tt.version, tt.commit, got, tt.want)
		}
	}
}

func TestBanner(t *testing.T) {
	b := Get().Banner()
	if !strings.HasPrefix(b, "feedbackd ") || !strings.Contains(b, "go") {
		t.Errorf("Banner() = %q", b)
	}
}
