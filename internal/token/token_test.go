package token

import (
	"encoding/base64"
	"testing"
)

func TestNewTokenShape(t *testing.T) {
	tok, err := New()
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		t.Fatalf("token is not base64url: %v", err)
	}
	if len(raw) != sessionTokenSize {
		t.Fatalf("expected %d bytes of entropy, got %d", sessionTokenSize, len(raw))
	}
}

func TestNewIDShape(t *testing.T) {
	id, err := NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		t.Fatalf("id is not base64url: %v", err)
	}
	if len(raw) != sessionIDSize {
		t.Fatalf("expected %d bytes of entropy, got %d", sessionIDSize, len(raw))
	}
}

func TestNoCollisions(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok, err := New()
		if err != nil {
			t.Fatalf("new token: %v", err)
		}
		if seen[tok] {
			t.Fatalf("collision after %d tokens", i)
		}
		seen[tok] = true
	}
}
