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

// Email Secretary
//
// Entry point for the secretary service. It:
//  1. Loads configuration from config.yaml and the environment
//  2. Connects to PostgreSQL and Redis
//  3. Polls each enabled user's inbox, drafting privacy-checked replies
//     for human approval
//  4. Sends replies the professional has approved
//  5. Serves /health and /metrics, shutting down on SIGTERM/SIGINT
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/clinicdesk/secretary/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "secretary",
	Short: "Email secretary: triage, draft and safety-check replies for approval",
	Long: `secretary reads unread mail for every user with the email secretary
enabled, classifies it, drafts a reply, and blocks or flags drafts that leak
private details. Drafts wait for approval; approved drafts are sent on the
next cycle.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger(slog.LevelInfo)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default: $CONFIG_PATH or "+config.DefaultPath+")")
	rootCmd.AddCommand(serveCmd, onceCmd, redactCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setupLogger installs the structured JSON logger as the default.
func setupLogger(level slog.Level) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// loadConfig reads --config if given, otherwise CONFIG_PATH, and applies the
// configured log level.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	level, _ := cfg.SlogLevel()
	setupLogger(level)
	slog.Info("configuration loaded",
		"llm_provider", cfg.LLM.Provider,
		"mailbox_provider", cfg.MailboxProvider,
		"poll_interval", cfg.PollInterval,
	)
	return cfg, nil
}
