package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"arbor-cli/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToConfiguredFile(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "logs", "arbor.log")
	l, closer := New(config.LogConfig{Level: "debug", File: file}, "", false)
	l.WithField("node", "n1").Debug("hello")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(b), "hello")
	assert.Contains(t, string(b), "node=n1")
}

func TestNewTerminalOwnerLogsToDataDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l, closer := New(config.LogConfig{Level: "info"}, dir, true)
	l.Info("from the tree view")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(filepath.Join(dir, defaultLogFile))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), "from the tree view"))
}

func TestNewDefaultsToStderrAndInfo(t *testing.T) {
	t.Parallel()

	l, closer := New(config.LogConfig{Level: "loud"}, t.TempDir(), false)
	defer closer.Close()
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.Equal(t, os.Stderr, l.Out)
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	l := Discard()
	assert.False(t, l.IsLevelEnabled(logrus.ErrorLevel))
}
