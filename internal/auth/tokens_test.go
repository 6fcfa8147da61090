package auth

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinewatch/cinewatch/internal/domain"
)

func testKey() []byte {
	return bytes.Repeat([]byte{7}, keyLength)
}

func TestTokenService_IssueVerify(t *testing.T) {
	svc, err := NewTokenService(testKey(), time.Hour)
	require.NoError(t, err)

	token, err := svc.Issue(&domain.Identity{UID: "usr-1", Email: "a@example.com"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v4.local."))

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", claims.UID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, "usr-1", claims.Subject)
	assert.NotEmpty(t, claims.TokenID)
	assert.Equal(t, &domain.Identity{UID: "usr-1", Email: "a@example.com"}, claims.Identity())
}

func TestTokenService_Expired(t *testing.T) {
	svc, err := NewTokenService(testKey(), time.Hour)
	require.NoError(t, err)

	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }
	token, err := svc.Issue(&domain.Identity{UID: "usr-1"})
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = svc.Verify(token)
	assert.Error(t, err)
}

func TestTokenService_WrongKey(t *testing.T) {
	a, err := NewTokenService(testKey(), time.Hour)
	require.NoError(t, err)
	b, err := NewTokenService(bytes.Repeat([]byte{9}, keyLength), time.Hour)
	require.NoError(t, err)

	token, err := a.Issue(&domain.Identity{UID: "usr-1"})
	require.NoError(t, err)
	_, err = b.Verify(token)
	assert.Error(t, err)
}

func TestNewTokenService_BadKey(t *testing.T) {
	_, err := NewTokenService([]byte("short"), time.Hour)
	assert.Error(t, err)
}

func TestLoadOrGenerateKey(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	first, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Len(t, first, keyLength)

	second, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	info, err := os.Stat(filepath.Join(dir, keyFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadOrGenerateKey_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, keyFileName), []byte("abc"), 0o600))

	_, err := LoadOrGenerateKey(dir)
	assert.Error(t, err)
}
