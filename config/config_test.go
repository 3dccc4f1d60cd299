package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sassoftware/cabtool/lib/cabfile"
)

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cabtool.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
create:
  compression: mszip
  compression_level: 9
  checksums: false
  max_cabinet_size: 1457664
extract:
  restore_attributes: false
logging:
  level: debug
  file: "-"
verify:
  parallel: 3
`), 0644))
	config, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, config.Path())
	assert.Equal(t, cabfile.CompressMSZIP, config.Create.CompressionType())
	assert.Equal(t, 9, config.Create.CompressionLevel)
	assert.False(t, config.Create.ChecksumsEnabled())
	assert.EqualValues(t, 1457664, config.Create.MaxCabinetSize)
	assert.False(t, config.Extract.Restore())
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "-", config.Logging.File)
	assert.Equal(t, 3, config.Verify.Workers())
}

func TestDefaults(t *testing.T) {
	for _, config := range []*Config{Default(), mustParse(t, "")} {
		assert.Equal(t, cabfile.CompressNone, config.Create.CompressionType())
		assert.True(t, config.Create.ChecksumsEnabled())
		assert.True(t, config.Extract.Restore())
		assert.Positive(t, config.Verify.Workers())
	}
}

func TestInvalid(t *testing.T) {
	_, err := Parse([]byte("create:\n  compression: lzma\n"))
	assert.Error(t, err)
	_, err = Parse([]byte("create:\n  compresion: mszip\n"))
	assert.Error(t, err, "typos are rejected")
	_, err = Parse([]byte("verify:\n  parallel: -1\n"))
	assert.Error(t, err)
	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func mustParse(t *testing.T, s string) *Config {
	config, err := Parse([]byte(s))
	require.NoError(t, err)
	return config
}
