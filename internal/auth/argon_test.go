package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("popcorn")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=4$"))
	assert.True(t, VerifyPassword(hash, "popcorn"))
	assert.False(t, VerifyPassword(hash, "Popcorn"))
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	a, err := HashPassword("popcorn")
	require.NoError(t, err)
	b, err := HashPassword("popcorn")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashPassword_Rejects(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)

	_, err = HashPassword(strings.Repeat("x", maxPasswordLength+1))
	assert.Error(t, err)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	for _, hash := range []string{"", "plaintext", "$bcrypt$v=19$m=1,t=1,p=1$aa$bb", "$argon2id$v=18$m=1,t=1,p=1$aa$bb"} {
		assert.False(t, VerifyPassword(hash, "popcorn"), hash)
	}
}
