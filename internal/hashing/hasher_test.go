package hashing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHasher() *Hasher {
	return NewHasherWithParams(Argon2Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1}, "pepper")
}

func TestHashPassword_RoundTrip(t *testing.T) {
	h := testHasher()

	encoded, err := h.HashPassword("supersecreto")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$"))

	ok, err := h.VerifyPassword("supersecreto", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.VerifyPassword("otra-cosa", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	h := testHasher()
	a, _ := h.HashPassword("same")
	b, _ := h.HashPassword("same")
	assert.NotEqual(t, a, b)
}

func TestVerifyPassword_PepperMatters(t *testing.T) {
	encoded, err := testHasher().HashPassword("supersecreto")
	require.NoError(t, err)

	other := NewHasherWithParams(Argon2Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1}, "different")
	ok, err := other.VerifyPassword("supersecreto", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPassword_RejectsGarbage(t *testing.T) {
	h := testHasher()
	_, err := h.VerifyPassword("x", "not-a-hash")
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, err = h.VerifyPassword("x", "$argon2id$v=1$m=1,t=1,p=1$AA$AA")
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}

func TestDigest_DeterministicAndKeyed(t *testing.T) {
	h := testHasher()
	assert.Equal(t, h.Digest("ana@example.com"), h.Digest("ana@example.com"))
	assert.NotEqual(t, h.Digest("ana@example.com"), h.Digest("bob@example.com"))
	assert.Len(t, h.Digest("x"), 64)

	other := NewHasherWithParams(Argon2Params{}, "another-pepper")
	assert.NotEqual(t, h.Digest("ana@example.com"), other.Digest("ana@example.com"))
}
