package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadEnv(t *testing.T) {
	path := writeEnvFile(t, `
# server settings
CLAWBOARD_TEST_PORT=3001
export CLAWBOARD_TEST_DB="./data/app.db"
CLAWBOARD_TEST_SECRET='with spaces inside'
`)
	for _, key := range []string{"CLAWBOARD_TEST_PORT", "CLAWBOARD_TEST_DB", "CLAWBOARD_TEST_SECRET"} {
		t.Cleanup(func() { os.Unsetenv(key) })
	}

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "3001", os.Getenv("CLAWBOARD_TEST_PORT"))
	assert.Equal(t, "./data/app.db", os.Getenv("CLAWBOARD_TEST_DB"))
	assert.Equal(t, "with spaces inside", os.Getenv("CLAWBOARD_TEST_SECRET"))
}

func TestLoadEnvDoesNotOverride(t *testing.T) {
	t.Setenv("CLAWBOARD_TEST_PORT", "9999")

	path := writeEnvFile(t, "CLAWBOARD_TEST_PORT=3001\n")
	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "9999", os.Getenv("CLAWBOARD_TEST_PORT"))
}

func TestLoadEnvMalformedLine(t *testing.T) {
	path := writeEnvFile(t, "CLAWBOARD_TEST_PORT=3001\nnot a pair\n")

	err := LoadEnv(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":2:")
}

func TestLoadEnvMissingFile(t *testing.T) {
	err := LoadEnv(filepath.Join(t.TempDir(), "absent.env"))
	assert.True(t, os.IsNotExist(err))
}
