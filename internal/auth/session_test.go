package auth

import (
	"testing"
	"time"
)

func TestIssueResolve(t *testing.T) {
	store := NewSessionStore(0)

	token := store.Issue("user-1")
	if token == "" {
		t.Fatal("Issue() returned empty token")
	}

	userID, ok := store.Resolve(token)
	if !ok {
		t.Fatal("Resolve() of a freshly issued token returned absent")
	}
	if userID != "user-1" {
		t.Errorf("Resolve() = %q, want %q", userID, "user-1")
	}
}

func TestIssueUniqueTokens(t *testing.T) {
	store := NewSessionStore(0)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		token := store.Issue("user-1")
		if seen[token] {
			t.Fatalf("Issue() returned duplicate token %q", token)
		}
		seen[token] = true
	}
}

func TestResolveUnknownToken(t *testing.T) {
	store := NewSessionStore(0)

	if _, ok := store.Resolve("never-issued"); ok {
		t.Error("Resolve() of a never-issued token returned present")
	}
}

func TestRevoke(t *testing.T) {
	store := NewSessionStore(0)

	token := store.Issue("user-1")
	store.Revoke(token)

	if _, ok := store.Resolve(token); ok {
		t.Error("Resolve() after Revoke() returned present")
	}

	// Revoking again must not panic or error.
	store.Revoke(token)
}

func TestSessionExpiry(t *testing.T) {
	store := NewSessionStore(time.Hour)

	current := time.Now()
	store.now = func() time.Time { return current }

	token := store.Issue("user-1")
	if _, ok := store.Resolve(token); !ok {
		t.Fatal("token expired immediately")
	}

	// Advance past the TTL.
	current = current.Add(time.Hour + time.Minute)
	if _, ok := store.Resolve(token); ok {
		t.Error("Resolve() of an expired token returned present")
	}

	// The expired entry is gone even if the clock moves back.
	current = current.Add(-2 * time.Hour)
	if _, ok := store.Resolve(token); ok {
		t.Error("expired token was not removed from the store")
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	store := NewSessionStore(0)

	current := time.Now()
	store.now = func() time.Time { return current }

	token := store.Issue("user-1")
	current = current.Add(1000 * time.Hour)

	if _, ok := store.Resolve(token); !ok {
		t.Error("token with TTL 0 expired")
	}
}
