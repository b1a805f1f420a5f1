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

// Package discovery decides which users the poll loop serves: everyone with
// the secretary agent enabled, or an explicit list from config, minus any
// exclusions.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Lister returns the ids of users that have the secretary enabled.
type Lister interface {
	ActiveUsers(ctx context.Context) ([]string, error)
}

// Discovery resolves the user set for one poll cycle.
type Discovery struct {
	lister  Lister
	include []string
	exclude map[string]bool
}

// NewDiscovery creates a discovery with config-driven overrides.
func NewDiscovery(lister Lister, include, exclude []string) *Discovery {
	excludeSet := make(map[string]bool, len(exclude))
	for _, u := range exclude {
		excludeSet[strings.ToLower(strings.TrimSpace(u))] = true
	}
	return &Discovery{lister: lister, include: include, exclude: excludeSet}
}

// DiscoverUsers returns the users to process, in listing order with
// duplicates removed.
//
//   - If include is non-empty, only those users are returned and the
//     database is not queried.
//   - Otherwise the lister's active users are used.
//   - In both cases exclusions are applied, ignoring case.
func (d *Discovery) DiscoverUsers(ctx context.Context) ([]string, error) {
	candidates := d.include
	if len(candidates) > 0 {
		slog.Debug("using explicit user list", "count", len(candidates))
	} else {
		if d.lister == nil {
			return nil, fmt.Errorf("discover users: no user source configured")
		}
		active, err := d.lister.ActiveUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("discover users: %w", err)
		}
		candidates = active
	}

	seen := make(map[string]bool, len(candidates))
	users := make([]string, 0, len(candidates))
	for _, u := range candidates {
		u = strings.TrimSpace(u)
		key := strings.ToLower(u)
		if u == "" || seen[key] {
			continue
		}
		seen[key] = true
		if d.exclude[key] {
			slog.Debug("excluding user", "user", u)
			continue
		}
		users = append(users, u)
	}

	slog.Debug("user discovery complete", "discovered", len(users))
	return users, nil
}
