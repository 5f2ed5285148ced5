// Package config loads Academate settings from defaults, a JSON config file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Data    DataConfig
	Agent   AgentConfig
	Retry   RetryConfig
	Log     LogConfig
	Storage StorageConfig
}

type ServerConfig struct {
	Host     string
	Port     int
	APIToken string
}

type DataConfig struct {
	Dir      string
	CacheTTL string
}

type AgentConfig struct {
	BaseURL       string
	Model         string
	Temperature   float64
	APIKey        string
	MaxToolRounds int
	HistoryWindow int
}

type RetryConfig struct {
	Attempts     int
	InitialDelay string
	ExpBase      float64
	MaxDelay     string
	StatusCodes  string
}

type LogConfig struct {
	Level string
	File  string
}

type StorageConfig struct {
	TranscriptDB string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Data: DataConfig{
			Dir:      "data",
			CacheTTL: "0",
		},
		Agent: AgentConfig{
			BaseURL:       "https://generativelanguage.googleapis.com/v1beta/openai",
			Model:         "gemini-2.5-flash-lite",
			Temperature:   0.7,
			MaxToolRounds: 5,
			HistoryWindow: 10,
		},
		Retry: RetryConfig{
			Attempts:     5,
			InitialDelay: "1s",
			ExpBase:      7,
			MaxDelay:     "60s",
			StatusCodes:  "429,500,503,504",
		},
		Log: LogConfig{
			Level: "info",
			File:  "logs/agent.log",
		},
	}
}

// DotEnvFile is read from the working directory when present.
const DotEnvFile = ".env"

// Load reads configuration from the JSON config file at
// $XDG_CONFIG_HOME/academate/config.json, then .env in the working
// directory, then ACADEMATE_* environment variables. The agent API key is
// taken from GOOGLE_API_KEY.
func Load() (Config, error) {
	return loadWith(openJSONFile(configFilePath()), DotEnvFile)
}

func loadWith(b ConfigBackend, dotenvPath string) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	dotenv, err := godotenv.Read(dotenvPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("reading %s: %w", dotenvPath, err)
	}
	applyEnvOverrides(&cfg, envLookup(dotenv))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envLookup prefers the process environment over values from .env.
func envLookup(dotenv map[string]string) func(string) string {
	return func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}
}

// Validate checks values that are stored as strings but parsed later.
func (c Config) Validate() error {
	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	if _, err := c.RetryInitialDelay(); err != nil {
		return err
	}
	if _, err := c.RetryMaxDelay(); err != nil {
		return err
	}
	if _, err := c.RetryStatusCodes(); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// CacheTTL parses data.cache_ttl. Zero means datasets are cached until
// restart.
func (c Config) CacheTTL() (time.Duration, error) {
	return parseDuration("data.cache_ttl", c.Data.CacheTTL)
}

func (c Config) RetryInitialDelay() (time.Duration, error) {
	return parseDuration("retry.initial_delay", c.Retry.InitialDelay)
}

func (c Config) RetryMaxDelay() (time.Duration, error) {
	return parseDuration("retry.max_delay", c.Retry.MaxDelay)
}

// RetryStatusCodes parses the comma-separated retry.status_codes list.
func (c Config) RetryStatusCodes() ([]int, error) {
	var codes []int
	for _, part := range strings.Split(c.Retry.StatusCodes, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, err := strconv.Atoi(part)
		if err != nil || code < 100 || code > 599 {
			return nil, fmt.Errorf("retry.status_codes: %q is not an HTTP status", part)
		}
		codes = append(codes, code)
	}
	return codes, nil
}

func parseDuration(key, v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" || v == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return d, nil
}
