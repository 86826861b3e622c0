package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config is the persisted shell config schema (~/.ggh/shell.toml).
type Config struct {
	URL            string   `toml:"url"`
	Endpoint       string   `toml:"endpoint"`
	Param          string   `toml:"param"`
	Token          string   `toml:"token"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	Prompt         string   `toml:"prompt"`
	Greeting       string   `toml:"greeting"`
	HistoryPath    string   `toml:"history_path"`
	LogLevel       string   `toml:"log_level"`
	LogPath        string   `toml:"log_path"`
	Listen         string   `toml:"listen"`
	CORSOrigins    []string `toml:"cors_origins"`
	Source         string   `toml:"-"`
}

const (
	envURL   = "GGH_SHELL_URL"
	envToken = "GGH_SHELL_TOKEN"
)

// DefaultGreeting 是终端打开时显示的横幅。
const DefaultGreeting = "-~== GoofyGoHome Shell ==~-"

func Default() Config {
	return Config{
		URL:            "http://127.0.0.1:8080",
		Endpoint:       "/proc",
		Param:          "cmd",
		TimeoutSeconds: 0,
		Prompt:         "> ",
		Greeting:       DefaultGreeting,
		LogLevel:       "info",
		LogPath:        "logs/ggh-shell.log",
		Listen:         "127.0.0.1:8080",
	}
}

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ggh", "shell.toml")
}

// Timeout 返回请求超时；0 表示不限。
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoadEnvFile 读取 .env（不存在时忽略），已有的环境变量不会被覆盖。
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, errors.New("config path is empty and $HOME is not set")
	}
	cfg.Source = path

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return applyEnv(cfg), nil
		}
		return cfg, err
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return cfg, err
	}
	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	if env := strings.TrimSpace(os.Getenv(envURL)); env != "" {
		cfg.URL = env
	}
	if env := strings.TrimSpace(os.Getenv(envToken)); env != "" {
		cfg.Token = env
	}
	return cfg
}
