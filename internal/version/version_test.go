package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	got := String()
	if !strings.Contains(got, Version) || !strings.Contains(got, Commit) {
		t.Errorf("String() = %q, want version and commit", got)
	}
}

func TestUserAgent(t *testing.T) {
	if got, want := UserAgent(), "ratel-client/"+Version; got != want {
		t.Errorf("UserAgent() = %q, want %q", got, want)
	}
}
