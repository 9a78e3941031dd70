package warden

import (
	"strings"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-key", "warden-test")

	data, err := issuer.Issue(42)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if data.ExpiresIn != 3600 {
		t.Errorf("Expected 3600s expiry, got %d", data.ExpiresIn)
	}

	userID, err := issuer.Verify(data.Token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if userID != 42 {
		t.Errorf("Expected user id 42, got %d", userID)
	}
}

func TestTokenVerifyFailures(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-key", "warden-test")
	data, err := issuer.Issue(7)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	expired := NewTokenIssuer("test-secret-key", "warden-test")
	expired.Lifetime = -time.Minute
	expiredData, err := expired.Issue(7)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	tampered := data.Token[:len(data.Token)-4] + "AAAA"

	otherKey := NewTokenIssuer("a-different-key", "warden-test")
	otherData, err := otherKey.Issue(7)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"malformed", "not-a-token"},
		{"empty", ""},
		{"tampered signature", tampered},
		{"expired", expiredData.Token},
		{"wrong key", otherData.Token},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Verify(tt.token)
			if err == nil {
				t.Fatal("Expected verification to fail")
			}
			// Every failure mode must look the same to callers.
			if KindOf(err) != KindUnauthorized {
				t.Errorf("Expected unauthorized kind, got %v", KindOf(err))
			}
			if !strings.Contains(err.Error(), "Wrong authentication token") {
				t.Errorf("Unexpected error message: %v", err)
			}
		})
	}
}

func TestTokenCrossIssuerKeys(t *testing.T) {
	// Distinct issuers with distinct keys must not accept each other's tokens.
	a := NewTokenIssuer("key-a", "warden-test")
	b := NewTokenIssuer("key-b", "warden-test")

	data, err := a.Issue(1)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := b.Verify(data.Token); err == nil {
		t.Error("Expected token signed with key-a to fail under key-b")
	}
	if _, err := a.Verify(data.Token); err != nil {
		t.Errorf("Expected token to verify under its own key: %v", err)
	}
}
