package auth

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

const assertionSecret = "shared-secret"

func TestVerifyIdentityAssertion_Valid(t *testing.T) {
	assertion := SignIdentityAssertion(assertionSecret, "alice", time.Now().Add(-30*time.Second))

	vals, err := VerifyIdentityAssertion(assertion, assertionSecret, time.Minute)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if vals.Get("username") != "alice" {
		t.Errorf("expected username=alice, got %s", vals.Get("username"))
	}
}

func TestVerifyIdentityAssertion_Rejects(t *testing.T) {
	now := time.Now()
	valid := SignIdentityAssertion(assertionSecret, "alice", now)

	tampered, _ := url.ParseQuery(valid)
	tampered.Set("username", "root")

	tests := []struct {
		name      string
		assertion string
		secret    string
		wantErr   string
	}{
		{"no secret configured", valid, "", "not configured"},
		{"bare username", "username=root", assertionSecret, "hash is missing"},
		{"wrong secret", SignIdentityAssertion("other", "alice", now), assertionSecret, "invalid hash"},
		{"tampered username", tampered.Encode(), assertionSecret, "invalid hash"},
		{"expired", SignIdentityAssertion(assertionSecret, "alice", now.Add(-time.Hour)), assertionSecret, "expired"},
		{"future", SignIdentityAssertion(assertionSecret, "alice", now.Add(time.Hour)), assertionSecret, "future"},
		{"garbage hash", "username=alice&auth_date=1&hash=zz", assertionSecret, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyIdentityAssertion(tt.assertion, tt.secret, 5*time.Minute)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != "" && !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}
