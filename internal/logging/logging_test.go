package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggingFile(t *testing.T) {
	saved := log.Logger
	defer func() { log.Logger = saved }()
	path := filepath.Join(t.TempDir(), "out.log")
	require.NoError(t, SetupLogging("debug", path))
	ctx := WithContext(context.Background())
	zerolog.Ctx(ctx).Debug().Str("cabinet", "test.cab").Msg("hello")
	d, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(d), `"cabinet":"test.cab"`)
	assert.Contains(t, string(d), `"level":"debug"`)
}

func TestSetupLoggingLevel(t *testing.T) {
	saved := log.Logger
	defer func() { log.Logger = saved }()
	require.NoError(t, SetupLogging("", "-"))
	assert.Equal(t, zerolog.InfoLevel, log.Logger.GetLevel())
	assert.Error(t, SetupLogging("loud", "-"))
}
