package checkin

import (
	"testing"
	"time"
)

func TestTokenIssuerExpiry(t *testing.T) {
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	issuer := TokenIssuer{TTL: 15 * time.Minute}

	token, expiresAt, err := issuer.Issue(now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}
	if want := now.Add(15 * time.Minute); !expiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, expiresAt)
	}
}

func TestTokenIssuerPrintable(t *testing.T) {
	issuer := TokenIssuer{TTL: time.Minute}
	token, _, err := issuer.Issue(time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(token) != 32 {
		t.Fatalf("expected 32 characters, got %d", len(token))
	}
	for _, r := range token {
		if (r < 'A' || r > 'Z') && (r < '2' || r > '7') {
			t.Fatalf("unexpected character %q in token %q", r, token)
		}
	}
}

func TestTokenIssuerUniqueness(t *testing.T) {
	issuer := TokenIssuer{TTL: time.Minute}
	seen := make(map[string]bool, 1000)
	now := time.Now()
	for i := 0; i < 1000; i++ {
		token, _, err := issuer.Issue(now)
		if err != nil {
			t.Fatalf("issue %d: %v", i, err)
		}
		if seen[token] {
			t.Fatalf("duplicate token after %d issues", i)
		}
		seen[token] = true
	}
}
