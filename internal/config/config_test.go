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

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// clearEnv blanks every variable Load consults so host settings cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_PATH", "DATABASE_URL", "REDIS_URL", "AUDIT_QUEUE", "LLM_PROVIDER", "LLM_MODEL",
		"LLM_BASE_URL", "LLM_TIMEOUT", "OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
		"BUSINESS_NAME", "PROFESSIONAL_NAME", "MAILBOX_PROVIDER", "GMAIL_CLIENT_ID",
		"GMAIL_CLIENT_SECRET", "IMAP_ADDRESS", "IMAP_PASSWORD", "CHECK_INTERVAL_MINUTES",
		"POLL_INTERVAL", "POLL_ERROR_BACKOFF", "CALL_TIMEOUT", "SLOW_QUERY_THRESHOLD",
		"PORT", "LOG_LEVEL", "INCLUDE_USERS",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// TestLoadFrom_YAML verifies file values, env expansion and duration parsing.
func TestLoadFrom_YAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_OPENAI_KEY", "sk-test")

	path := writeConfig(t, `
database:
  url: postgres://app@db/secretary
redis:
  url: redis://cache:6379/1
  queues:
    audit: secretary_audit
llm:
  provider: openai
  api_key: ${TEST_OPENAI_KEY}
  timeout: 30s
practice:
  business_name: Riverside Physio
  professional_name: Dr. Lee
mailbox:
  provider: gmail
  gmail:
    client_id: cid
    client_secret: csecret
users:
  include: [u1, u2]
  exclude: [u3]
safety:
  forbidden_phrases: ["at the gym"]
poll:
  interval: 2m
  error_backoff: 30s
pipeline:
  call_timeout: 45s
port: 9090
log:
  level: debug
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	want := &Config{
		DatabaseURL:        "postgres://app@db/secretary",
		SlowQueryThreshold: 200 * time.Millisecond,
		RedisURL:           "redis://cache:6379/1",
		AuditQueue:         "secretary_audit",
		LLM:                LLMConfig{Provider: "openai", APIKey: "sk-test", Timeout: 30 * time.Second},
		Practice:           PracticeConfig{BusinessName: "Riverside Physio", ProfessionalName: "Dr. Lee"},
		MailboxProvider:    "gmail",
		Gmail:              GmailConfig{ClientID: "cid", ClientSecret: "csecret", MaxResults: 10},
		IMAP:               IMAPConfig{MaxResults: 10},
		IncludeUsers:       []string{"u1", "u2"},
		ExcludeUsers:       []string{"u3"},
		ForbiddenPhrases:   []string{"at the gym"},
		PollInterval:       2 * time.Minute,
		ErrorBackoff:       30 * time.Second,
		CallTimeout:        45 * time.Second,
		Port:               9090,
		LogLevel:           "debug",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

// TestLoadFrom_EnvOnly verifies the environment fallbacks and defaults.
func TestLoadFrom_EnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/secretary")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("GMAIL_CLIENT_ID", "id")
	t.Setenv("GMAIL_CLIENT_SECRET", "secret")
	t.Setenv("CHECK_INTERVAL_MINUTES", "10")

	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.PollInterval != 10*time.Minute {
		t.Errorf("PollInterval = %v, want 10m", cfg.PollInterval)
	}
	if cfg.ErrorBackoff != time.Minute {
		t.Errorf("ErrorBackoff = %v, want 1m", cfg.ErrorBackoff)
	}
	if cfg.Practice.BusinessName != "Your Business" || cfg.Practice.ProfessionalName != "Your Name" {
		t.Errorf("practice = %+v", cfg.Practice)
	}
	if cfg.LLM.APIKey != "sk-env" || cfg.LLM.Provider != "openai" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" || cfg.AuditQueue != "audit_events" {
		t.Errorf("redis = %q / %q", cfg.RedisURL, cfg.AuditQueue)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if lvl, _ := cfg.SlogLevel(); lvl != slog.LevelInfo {
		t.Errorf("level = %v, want INFO", lvl)
	}
}

// TestLoadFrom_GeminiKey verifies the provider-specific key variable.
func TestLoadFrom_GeminiKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/secretary")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("OPENAI_API_KEY", "sk-wrong")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("MAILBOX_PROVIDER", "imap")
	t.Setenv("IMAP_ADDRESS", "desk@example.com")
	t.Setenv("IMAP_PASSWORD", "app-pass")
	t.Setenv("INCLUDE_USERS", "owner")

	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.LLM.APIKey != "g-key" {
		t.Errorf("APIKey = %q, want %q", cfg.LLM.APIKey, "g-key")
	}
	if cfg.IMAP.Address != "desk@example.com" {
		t.Errorf("IMAP.Address = %q", cfg.IMAP.Address)
	}
	if diff := cmp.Diff([]string{"owner"}, cfg.IncludeUsers); diff != "" {
		t.Errorf("IncludeUsers mismatch (-want +got):\n%s", diff)
	}
}

// TestLoadFrom_Validation verifies invalid configurations are rejected.
func TestLoadFrom_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing database",
			yaml:    "llm: {api_key: k}\nmailbox: {gmail: {client_id: a, client_secret: b}}\n",
			wantErr: "database.url",
		},
		{
			name:    "unknown provider",
			yaml:    "database: {url: pg}\nllm: {provider: claude, api_key: k}\nmailbox: {gmail: {client_id: a, client_secret: b}}\n",
			wantErr: "unknown llm.provider",
		},
		{
			name:    "missing api key",
			yaml:    "database: {url: pg}\nmailbox: {gmail: {client_id: a, client_secret: b}}\n",
			wantErr: "llm.api_key",
		},
		{
			name:    "imap without password",
			yaml:    "database: {url: pg}\nllm: {api_key: k}\nmailbox: {provider: imap, imap: {address: a@b.c}}\n",
			wantErr: "mailbox.imap",
		},
		{
			name:    "imap without owner",
			yaml:    "database: {url: pg}\nllm: {api_key: k}\nmailbox: {provider: imap, imap: {address: a@b.c, password: p}}\n",
			wantErr: "exactly one users.include",
		},
		{
			name:    "imap shared by two users",
			yaml:    "database: {url: pg}\nllm: {api_key: k}\nmailbox: {provider: imap, imap: {address: a@b.c, password: p}}\nusers: {include: [u1, u2]}\n",
			wantErr: "exactly one users.include",
		},
		{
			name:    "bad duration",
			yaml:    "database: {url: pg}\nllm: {api_key: k}\nmailbox: {gmail: {client_id: a, client_secret: b}}\npoll: {interval: soon}\n",
			wantErr: "poll.interval",
		},
		{
			name:    "bad log level",
			yaml:    "database: {url: pg}\nllm: {api_key: k}\nmailbox: {gmail: {client_id: a, client_secret: b}}\nlog: {level: chatty}\n",
			wantErr: "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := LoadFrom(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

// TestLoad_ExplicitMissingFile verifies an explicit CONFIG_PATH must exist.
func TestLoad_ExplicitMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for explicit missing CONFIG_PATH")
	}
}
