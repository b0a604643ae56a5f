package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/and161185/subtrack/internal/config"
)

func TestNewClient_File(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cli.log")
	log, closer, err := NewClient(config.Log{Level: "info", File: p, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("synced")
	_ = log.Sync()
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(b), `"msg":"synced"`), string(b))
	require.False(t, strings.Contains(string(b), "hidden"))
}

func TestNewClient_StderrAtWarn(t *testing.T) {
	log, closer, err := NewClient(config.Log{Level: "debug"})
	require.NoError(t, err)
	require.NoError(t, closer.Close())
	require.False(t, log.Core().Enabled(zapcore.DebugLevel))
	require.True(t, log.Core().Enabled(zapcore.WarnLevel))
}

func TestNewClient_BadLevel(t *testing.T) {
	_, _, err := NewClient(config.Log{Level: "loud", File: filepath.Join(t.TempDir(), "x.log")})
	require.Error(t, err)
}

func TestNewServer(t *testing.T) {
	log, err := NewServer("warn")
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zapcore.InfoLevel))

	_, err = NewServer("nope")
	require.Error(t, err)
}
