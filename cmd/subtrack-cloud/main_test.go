package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCmd_RejectsShortKey(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--jwt-key", "short", "--dsn", "postgres://x"})
	err := cmd.ExecuteContext(context.Background())
	require.ErrorContains(t, err, "validate config")
}

func TestRootCmd_RequiresTLSPair(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--jwt-key", "0123456789abcdef", "--tls-cert", "cert.pem"})
	err := cmd.ExecuteContext(context.Background())
	require.ErrorContains(t, err, "TLSKey")
}

func TestRootCmd_Version(t *testing.T) {
	cmd := newRootCmd()
	require.Contains(t, cmd.Version, version)
}
