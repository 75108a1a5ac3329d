package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"arbor-cli/internal/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultLogFile = "arbor.log"

// New builds the process logger. Output goes to the configured rotating file; when
// none is configured it goes to stderr, unless ownsTerminal is set (the TUI), in
// which case it goes to arbor.log in the data dir so it cannot corrupt the screen.
func New(cfg config.LogConfig, dataDir string, ownsTerminal bool) (*logrus.Logger, io.Closer) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	file := strings.TrimSpace(cfg.File)
	if file == "" && ownsTerminal && strings.TrimSpace(dataDir) != "" {
		file = filepath.Join(dataDir, defaultLogFile)
	}
	if file == "" {
		logger.SetOutput(os.Stderr)
		return logger, nopCloser{}
	}

	rot := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    positive(cfg.MaxSizeMB, 10),
		MaxBackups: positive(cfg.MaxBackups, 3),
		Compress:   false,
	}
	logger.SetOutput(rot)
	return logger, rot
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func positive(v, d int) int {
	if v > 0 {
		return v
	}
	return d
}
