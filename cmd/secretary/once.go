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

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var onceUsers []string

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single poll cycle and exit",
	Long: `Runs one cycle: every enabled user's inbox is triaged and their approved
drafts are sent. --user restricts the cycle to the given user ids.

Example:
  secretary once --user 3f2a... --user 9b1c...`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		a, err := newApp(ctx, cfg, onceUsers)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.poller.RunCycle(ctx)
	},
}

func init() {
	onceCmd.Flags().StringSliceVar(&onceUsers, "user", nil, "user id to process (repeatable; default: all enabled users)")
}
