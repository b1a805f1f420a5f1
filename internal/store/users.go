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

package store

import (
	"context"
	"fmt"
)

// ActiveUsers returns the ids of users who have enabled the secretary.
func (s *Store) ActiveUsers(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id
		FROM agent_settings
		WHERE $1 = ANY(active_agents)
		ORDER BY user_id
	`, AgentName)
	if err != nil {
		return nil, fmt.Errorf("query active users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan active user: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}
