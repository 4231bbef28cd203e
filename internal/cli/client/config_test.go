package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useTempConfig points the global config at a fresh temp file.
func useTempConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	old := getConfigPathFunc
	getConfigPathFunc = func() (string, error) { return path, nil }
	t.Cleanup(func() { getConfigPathFunc = old })
	return path
}

func TestDefaultConfigPath(t *testing.T) {
	path, err := defaultGetConfigPath()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, "consultbot", filepath.Base(filepath.Dir(path)))
}

func TestLoadGlobalConfig_Missing(t *testing.T) {
	useTempConfig(t)

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, config)

	id, err := CurrentSessionID("http://localhost:8080")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestLoadGlobalConfig_Invalid(t *testing.T) {
	path := useTempConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("{invalid"), 0600))

	_, err := LoadGlobalConfig()
	assert.Error(t, err)
}

func TestSaveGlobalConfig(t *testing.T) {
	path := useTempConfig(t)

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: "k", APIURL: "http://x"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, "k", config.APIKey)
	assert.Equal(t, "http://x", config.APIURL)

	assert.Error(t, SaveGlobalConfig(nil))
}

func TestRememberAndForgetSession(t *testing.T) {
	useTempConfig(t)
	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: "k"}))

	require.NoError(t, RememberSession("http://a:8080/", "s-1"))
	require.NoError(t, RememberSession("http://b:8080", "s-9"))

	id, err := CurrentSessionID("http://a:8080")
	require.NoError(t, err)
	assert.Equal(t, "s-1", id, "trailing slash does not matter")

	id, err = CurrentSessionID("http://c:8080")
	require.NoError(t, err)
	assert.Empty(t, id, "sessions are per server")

	require.NoError(t, ForgetSession("http://a:8080"))
	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"http://b:8080": "s-9"}, config.Sessions)
	assert.Equal(t, "k", config.APIKey, "other settings survive")

	require.NoError(t, ForgetSession("http://b:8080"))
	config, err = LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, config.Sessions)
}
