package whitelist

import (
	"testing"

	"go.uber.org/zap"
)

func TestChecker(t *testing.T) {
	c := NewChecker([]string{" Gmail.com", "", "me.com"}, zap.NewNop())
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}

	tests := map[string]bool{
		"a@gmail.com":      true,
		"A@GMAIL.COM":      true,
		"a@me.com":         true,
		"a@mail.gmail.com": false,
		"gmail.com":        false,
		"a@corp.com":       false,
	}
	for email, want := range tests {
		if got := c.IsWhitelisted(email); got != want {
			t.Errorf("IsWhitelisted(%q) = %v, want %v", email, got, want)
		}
	}

	if NewChecker(nil, nil).IsWhitelisted("a@gmail.com") {
		t.Fatal("empty checker matched")
	}
}
