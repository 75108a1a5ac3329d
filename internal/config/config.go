package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"arbor-cli/internal/store"

	"github.com/spf13/viper"
)

const envPrefix = "ARBOR"

type Config struct {
	DataDir string    `json:"dataDir" yaml:"dataDir" mapstructure:"data_dir"`
	Log     LogConfig `json:"log" yaml:"log" mapstructure:"log"`
	TUI     TUIConfig `json:"tui" yaml:"tui" mapstructure:"tui"`
	Watch   Watch     `json:"watch" yaml:"watch" mapstructure:"watch"`

	// File is the config file that was read, if any.
	File string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"-"`
}

type LogConfig struct {
	Level      string `json:"level" yaml:"level" mapstructure:"level"`
	File       string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`
	MaxSizeMB  int    `json:"maxSizeMb" yaml:"maxSizeMb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"maxBackups" yaml:"maxBackups" mapstructure:"max_backups"`
}

type TUIConfig struct {
	// Glyphs selects the glyph set ("unicode" or "ascii").
	Glyphs       string `json:"glyphs" yaml:"glyphs" mapstructure:"glyphs"`
	ShowArchived bool   `json:"showArchived" yaml:"showArchived" mapstructure:"show_archived"`
	FocusedView  bool   `json:"focusedView" yaml:"focusedView" mapstructure:"focused_view"`
}

type Watch struct {
	PollInterval time.Duration `json:"pollInterval" yaml:"pollInterval" mapstructure:"poll_interval"`
	ForcePoll    bool          `json:"forcePoll" yaml:"forcePoll" mapstructure:"force_poll"`
}

// Dir returns the config directory ($XDG_CONFIG_HOME/arbor or ~/.config/arbor).
func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); v != "" {
		return filepath.Join(v, "arbor"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "arbor"), nil
}

// Load reads the config file (explicit path, or config.yaml in Dir) and ARBOR_*
// environment overrides. A missing default config file is not an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	dataDir, err := store.DefaultDir()
	if err != nil {
		return nil, err
	}
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("tui.glyphs", "unicode")
	v.SetDefault("tui.show_archived", false)
	v.SetDefault("tui.focused_view", false)
	v.SetDefault("watch.poll_interval", 2*time.Second)
	v.SetDefault("watch.force_poll", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.Log.File = expandHome(cfg.Log.File)
	return &cfg, nil
}

func expandHome(p string) string {
	p = strings.TrimSpace(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
