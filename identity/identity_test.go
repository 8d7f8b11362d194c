package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIdentityFromFileCreatesOnce(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "identity.txt")

	created, err := ExtractIdentityFromFile(filename, "Ada")
	require.NoError(t, err)
	assert.Equal(t, "Ada", created.Name)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Preferences.ReceiveColonists)

	loaded, err := ExtractIdentityFromFile(filename, "ignored")
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
	assert.Equal(t, "Ada", loaded.Name)
}

func TestExtractIdentityFromFileRequiresName(t *testing.T) {
	_, err := ExtractIdentityFromFile(filepath.Join(t.TempDir(), "identity.txt"), " ")
	assert.Error(t, err)
}

func TestExtractIdentityFromFileRejectsCorruptID(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "identity.txt")
	require.NoError(t, os.WriteFile(filename, []byte("not-a-uuid\nAda\n"), 0600))

	_, err := ExtractIdentityFromFile(filename, "Ada")
	assert.Error(t, err)
}
