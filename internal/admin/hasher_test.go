package admin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashIsDeterministicPerSecret(t *testing.T) {
	h := NewHasher("secret-a")
	require.Equal(t, h.Hash("password"), h.Hash("password"))
	require.NotEqual(t, h.Hash("password"), h.Hash("Password"))

	other := NewHasher("secret-b")
	require.NotEqual(t, h.Hash("password"), other.Hash("password"),
		"digest must depend on the server secret")
}

func TestHashIsFixedLength(t *testing.T) {
	h := NewHasher("secret")
	short := h.Hash("a")
	long := h.Hash("a-very-long-password-that-goes-on-and-on-and-on")
	require.Len(t, short, hashSize*2)
	require.Len(t, long, hashSize*2)
}

func TestVerify(t *testing.T) {
	h := NewHasher("secret")
	stored := h.Hash("correct horse")

	require.True(t, h.Verify("correct horse", stored))
	require.False(t, h.Verify("wrong", stored))
	require.False(t, h.Verify("correct horse", "not-hex"))
	require.False(t, h.Verify("correct horse", ""))
	// A truncated digest can never compare equal.
	require.False(t, h.Verify("correct horse", stored[:10]))
}
