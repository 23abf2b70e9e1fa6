package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptToken("cbe0870e-dfda-4a34-8bb7-000000000000", "hunter2")
	require.NoError(t, err)

	token, err := DecryptToken(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "cbe0870e-dfda-4a34-8bb7-000000000000", token)
}

func TestDecryptWrongPassword(t *testing.T) {
	blob, err := EncryptToken("secret-token", "correct")
	require.NoError(t, err)

	_, err = DecryptToken(blob, "wrong")
	assert.Error(t, err)
}

func TestEncryptRequiresInputs(t *testing.T) {
	_, err := EncryptToken("", "pw")
	assert.Error(t, err)

	_, err = EncryptToken("token", "")
	assert.Error(t, err)
}

func TestLoadTokenPrefersRaw(t *testing.T) {
	token, err := LoadToken(TokenConfig{RawToken: "raw-token", EncryptedTokenPath: "/does/not/exist"})
	require.NoError(t, err)
	assert.Equal(t, "raw-token", token)
}

func TestLoadTokenFromFile(t *testing.T) {
	blob, err := EncryptToken("file-token", "pw")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	token, err := LoadToken(TokenConfig{EncryptedTokenPath: path, Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "file-token", token)
}

func TestLoadTokenNoSource(t *testing.T) {
	_, err := LoadToken(TokenConfig{})
	assert.Error(t, err)
}
