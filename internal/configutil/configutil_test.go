package configutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseUrl string `json:"base_url"`
	Workers int    `json:"workers"`
	Cookie  string `json:"cookie"`
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, "config.local.json5", LocalPath("config.json5"))
	require.Equal(t, filepath.Join("a", "b.local.json5"), LocalPath(filepath.Join("a", "b.json5")))
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")

	err := os.WriteFile(name, []byte(`{
		// comments are allowed
		base_url: "https://example.org",
		workers: 4,
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(LocalPath(name), []byte(`{cookie: "session=abc", workers: 8}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, testConfig{
		BaseUrl: "https://example.org",
		Workers: 8,
		Cookie:  "session=abc",
	}, cfg)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestReadConfigInvalid(t *testing.T) {
	name := filepath.Join(t.TempDir(), "config.json5")
	require.NoError(t, os.WriteFile(name, []byte(`{workers: `), 0600))

	_, err := ReadConfig[testConfig](name)
	require.Error(t, err)
	require.NotErrorIs(t, err, fs.ErrNotExist)
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	err := os.WriteFile(filepath.Join(root, "visitcheck_test.json5"), []byte(`{ workers: 7 }`), 0600)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	defer os.Chdir(wd)

	cfg, err := ReadRecursively[testConfig]("visitcheck_test.json5")
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Workers)

	_, err = ReadRecursively[testConfig]("visitcheck_missing.json5")
	require.ErrorIs(t, err, fs.ErrNotExist)
}
