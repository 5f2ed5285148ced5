package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "ACADEMATE_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "ACADEMATE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.api_token", typ: kString, env: "ACADEMATE_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "data.dir", typ: kString, env: "ACADEMATE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Data.Dir = v.(string) },
		extract: func(cfg Config) any { return cfg.Data.Dir },
	},
	{
		key: "data.cache_ttl", typ: kString, env: "ACADEMATE_DATA_CACHE_TTL",
		apply:   func(cfg *Config, v any) { cfg.Data.CacheTTL = v.(string) },
		extract: func(cfg Config) any { return cfg.Data.CacheTTL },
	},
	{
		key: "agent.base_url", typ: kString, env: "ACADEMATE_AGENT_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Agent.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Agent.BaseURL },
	},
	{
		key: "agent.model", typ: kString, env: "ACADEMATE_AGENT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Agent.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Agent.Model },
	},
	{
		key: "agent.temperature", typ: kFloat, env: "ACADEMATE_AGENT_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.Agent.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Agent.Temperature },
	},
	{
		key: "agent.api_key", typ: kString, env: "GOOGLE_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Agent.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Agent.APIKey },
	},
	{
		key: "agent.max_tool_rounds", typ: kInt, env: "ACADEMATE_AGENT_MAX_TOOL_ROUNDS",
		apply:   func(cfg *Config, v any) { cfg.Agent.MaxToolRounds = v.(int) },
		extract: func(cfg Config) any { return cfg.Agent.MaxToolRounds },
	},
	{
		key: "agent.history_window", typ: kInt, env: "ACADEMATE_AGENT_HISTORY_WINDOW",
		apply:   func(cfg *Config, v any) { cfg.Agent.HistoryWindow = v.(int) },
		extract: func(cfg Config) any { return cfg.Agent.HistoryWindow },
	},
	{
		key: "retry.attempts", typ: kInt, env: "ACADEMATE_RETRY_ATTEMPTS",
		apply:   func(cfg *Config, v any) { cfg.Retry.Attempts = v.(int) },
		extract: func(cfg Config) any { return cfg.Retry.Attempts },
	},
	{
		key: "retry.initial_delay", typ: kString, env: "ACADEMATE_RETRY_INITIAL_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Retry.InitialDelay = v.(string) },
		extract: func(cfg Config) any { return cfg.Retry.InitialDelay },
	},
	{
		key: "retry.exp_base", typ: kFloat, env: "ACADEMATE_RETRY_EXP_BASE",
		apply:   func(cfg *Config, v any) { cfg.Retry.ExpBase = v.(float64) },
		extract: func(cfg Config) any { return cfg.Retry.ExpBase },
	},
	{
		key: "retry.max_delay", typ: kString, env: "ACADEMATE_RETRY_MAX_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Retry.MaxDelay = v.(string) },
		extract: func(cfg Config) any { return cfg.Retry.MaxDelay },
	},
	{
		key: "retry.status_codes", typ: kString, env: "ACADEMATE_RETRY_STATUS_CODES",
		apply:   func(cfg *Config, v any) { cfg.Retry.StatusCodes = v.(string) },
		extract: func(cfg Config) any { return cfg.Retry.StatusCodes },
	},
	{
		key: "log.level", typ: kString, env: "ACADEMATE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "log.file", typ: kString, env: "ACADEMATE_LOG_FILE",
		apply:   func(cfg *Config, v any) { cfg.Log.File = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.File },
	},
	{
		key: "storage.transcript_db", typ: kString, env: "ACADEMATE_STORAGE_TRANSCRIPT_DB",
		apply:   func(cfg *Config, v any) { cfg.Storage.TranscriptDB = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.TranscriptDB },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config, lookup func(string) string) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := lookup(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
