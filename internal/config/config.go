// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "/app/config/config.yaml"

// LLMConfig selects and authenticates the language model provider.
type LLMConfig struct {
	Provider string // "openai" or "gemini"
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// PracticeConfig names the business the secretary answers for.
type PracticeConfig struct {
	BusinessName     string
	ProfessionalName string
}

// GmailConfig holds the OAuth client used with per-user Gmail tokens.
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	MaxResults   int
}

// IMAPConfig holds a single app-password account, owned by the one user in
// users.include.
type IMAPConfig struct {
	Address    string
	Password   string
	IMAPAddr   string
	SMTPAddr   string
	Folder     string
	MaxResults int
}

// Config holds all configuration for the secretary service.
type Config struct {
	// PostgreSQL
	DatabaseURL        string
	SlowQueryThreshold time.Duration

	// Redis
	RedisURL   string
	AuditQueue string

	LLM      LLMConfig
	Practice PracticeConfig

	// Mailbox
	MailboxProvider string // "gmail" or "imap"
	Gmail           GmailConfig
	IMAP            IMAPConfig

	// User overrides
	IncludeUsers []string
	ExcludeUsers []string

	// Safety
	ForbiddenPhrases []string

	// Timing
	PollInterval time.Duration
	ErrorBackoff time.Duration
	CallTimeout  time.Duration

	// Server (health + metrics)
	Port     int
	LogLevel string
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Database struct {
		URL                string `yaml:"url"`
		SlowQueryThreshold string `yaml:"slow_query_threshold"`
	} `yaml:"database"`
	Redis struct {
		URL    string `yaml:"url"`
		Queues struct {
			Audit string `yaml:"audit"`
		} `yaml:"queues"`
	} `yaml:"redis"`
	LLM struct {
		Provider string `yaml:"provider"`
		APIKey   string `yaml:"api_key"`
		Model    string `yaml:"model"`
		BaseURL  string `yaml:"base_url"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"llm"`
	Practice struct {
		BusinessName     string `yaml:"business_name"`
		ProfessionalName string `yaml:"professional_name"`
	} `yaml:"practice"`
	Mailbox struct {
		Provider string `yaml:"provider"`
		Gmail    struct {
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
			MaxResults   int    `yaml:"max_results"`
		} `yaml:"gmail"`
		IMAP struct {
			Address    string `yaml:"address"`
			Password   string `yaml:"password"`
			IMAPAddr   string `yaml:"imap_addr"`
			SMTPAddr   string `yaml:"smtp_addr"`
			Folder     string `yaml:"folder"`
			MaxResults int    `yaml:"max_results"`
		} `yaml:"imap"`
	} `yaml:"mailbox"`
	Users struct {
		Include []string `yaml:"include"`
		Exclude []string `yaml:"exclude"`
	} `yaml:"users"`
	Safety struct {
		ForbiddenPhrases []string `yaml:"forbidden_phrases"`
	} `yaml:"safety"`
	Poll struct {
		Interval     string `yaml:"interval"`
		ErrorBackoff string `yaml:"error_backoff"`
	} `yaml:"poll"`
	Pipeline struct {
		CallTimeout string `yaml:"call_timeout"`
	} `yaml:"pipeline"`
	Port int `yaml:"port"`
	Log  struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads the file named by CONFIG_PATH. A missing file at the default
// path is not an error: every setting then comes from the environment.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		cfg, err := LoadFrom(DefaultPath)
		if errors.Is(err, os.ErrNotExist) {
			return LoadFrom("")
		}
		return cfg, err
	}
	return LoadFrom(path)
}

// LoadFrom reads configuration from path (with env var expansion) and fills
// the gaps from environment variables. An empty path skips the file.
func LoadFrom(path string) (*Config, error) {
	var raw rawConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}

		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	}

	cfg := &Config{
		DatabaseURL: firstNonEmpty(raw.Database.URL, os.Getenv("DATABASE_URL")),
		RedisURL:    firstNonEmpty(raw.Redis.URL, envOrDefault("REDIS_URL", "redis://localhost:6379/0")),
		AuditQueue:  firstNonEmpty(raw.Redis.Queues.Audit, envOrDefault("AUDIT_QUEUE", "audit_events")),
		LLM: LLMConfig{
			Provider: strings.ToLower(firstNonEmpty(raw.LLM.Provider, envOrDefault("LLM_PROVIDER", "openai"))),
			Model:    firstNonEmpty(raw.LLM.Model, os.Getenv("LLM_MODEL")),
			BaseURL:  firstNonEmpty(raw.LLM.BaseURL, os.Getenv("LLM_BASE_URL")),
		},
		Practice: PracticeConfig{
			BusinessName:     firstNonEmpty(raw.Practice.BusinessName, envOrDefault("BUSINESS_NAME", "Your Business")),
			ProfessionalName: firstNonEmpty(raw.Practice.ProfessionalName, envOrDefault("PROFESSIONAL_NAME", "Your Name")),
		},
		MailboxProvider: strings.ToLower(firstNonEmpty(raw.Mailbox.Provider, envOrDefault("MAILBOX_PROVIDER", "gmail"))),
		Gmail: GmailConfig{
			ClientID:     firstNonEmpty(raw.Mailbox.Gmail.ClientID, os.Getenv("GMAIL_CLIENT_ID")),
			ClientSecret: firstNonEmpty(raw.Mailbox.Gmail.ClientSecret, os.Getenv("GMAIL_CLIENT_SECRET")),
			MaxResults:   firstPositive(raw.Mailbox.Gmail.MaxResults, 10),
		},
		IMAP: IMAPConfig{
			Address:    firstNonEmpty(raw.Mailbox.IMAP.Address, os.Getenv("IMAP_ADDRESS")),
			Password:   firstNonEmpty(raw.Mailbox.IMAP.Password, os.Getenv("IMAP_PASSWORD")),
			IMAPAddr:   raw.Mailbox.IMAP.IMAPAddr,
			SMTPAddr:   raw.Mailbox.IMAP.SMTPAddr,
			Folder:     raw.Mailbox.IMAP.Folder,
			MaxResults: firstPositive(raw.Mailbox.IMAP.MaxResults, 10),
		},
		IncludeUsers:     splitList(raw.Users.Include, os.Getenv("INCLUDE_USERS")),
		ExcludeUsers:     raw.Users.Exclude,
		ForbiddenPhrases: raw.Safety.ForbiddenPhrases,
		Port:             firstPositive(raw.Port, envOrDefaultInt("PORT", 8080)),
		LogLevel:         strings.ToLower(firstNonEmpty(raw.Log.Level, envOrDefault("LOG_LEVEL", "info"))),
	}

	switch cfg.LLM.Provider {
	case "gemini":
		cfg.LLM.APIKey = firstNonEmpty(raw.LLM.APIKey, os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))
	default:
		cfg.LLM.APIKey = firstNonEmpty(raw.LLM.APIKey, os.Getenv("OPENAI_API_KEY"))
	}

	// CHECK_INTERVAL_MINUTES is kept for existing deployments.
	defaultInterval := time.Duration(envOrDefaultInt("CHECK_INTERVAL_MINUTES", 5)) * time.Minute

	var err error
	durations := []struct {
		name     string
		raw      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"database.slow_query_threshold", raw.Database.SlowQueryThreshold, envOrDefaultDuration("SLOW_QUERY_THRESHOLD", 200*time.Millisecond), &cfg.SlowQueryThreshold},
		{"llm.timeout", raw.LLM.Timeout, envOrDefaultDuration("LLM_TIMEOUT", 60*time.Second), &cfg.LLM.Timeout},
		{"poll.interval", raw.Poll.Interval, envOrDefaultDuration("POLL_INTERVAL", defaultInterval), &cfg.PollInterval},
		{"poll.error_backoff", raw.Poll.ErrorBackoff, envOrDefaultDuration("POLL_ERROR_BACKOFF", time.Minute), &cfg.ErrorBackoff},
		{"pipeline.call_timeout", raw.Pipeline.CallTimeout, envOrDefaultDuration("CALL_TIMEOUT", 60*time.Second), &cfg.CallTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = parseDuration(d.raw, d.fallback); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.name, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("database.url (or DATABASE_URL) is required"))
	}
	switch c.LLM.Provider {
	case "openai", "gemini":
		if c.LLM.APIKey == "" {
			errs = append(errs, fmt.Errorf("llm.api_key is required for provider %q", c.LLM.Provider))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm.provider %q", c.LLM.Provider))
	}
	switch c.MailboxProvider {
	case "gmail":
		if c.Gmail.ClientID == "" || c.Gmail.ClientSecret == "" {
			errs = append(errs, errors.New("mailbox.gmail client_id and client_secret are required"))
		}
	case "imap":
		if c.IMAP.Address == "" || c.IMAP.Password == "" {
			errs = append(errs, errors.New("mailbox.imap address and password are required"))
		}
		if len(c.IncludeUsers) != 1 || strings.TrimSpace(c.IncludeUsers[0]) == "" {
			errs = append(errs, errors.New("mailbox.provider imap requires exactly one users.include entry owning the mailbox"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mailbox.provider %q", c.MailboxProvider))
	}
	if c.PollInterval <= 0 || c.ErrorBackoff <= 0 || c.CallTimeout <= 0 {
		errs = append(errs, errors.New("poll and pipeline durations must be positive"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log.level %q", c.LogLevel)
	}
	return l, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return time.ParseDuration(strings.TrimSpace(raw))
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// splitList returns values, or the comma-separated env value when values is empty.
func splitList(values []string, env string) []string {
	if len(values) > 0 || strings.TrimSpace(env) == "" {
		return values
	}
	var out []string
	for _, v := range strings.Split(env, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
