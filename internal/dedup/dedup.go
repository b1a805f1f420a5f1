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

// Package dedup guards outgoing replies with a Redis key per approved draft,
// so a draft is sent at most once even when marking it sent fails.
//
// A key moves through two values: "claimed" while a send is in flight (short
// TTL, so a claim left behind by a failed send eventually expires) and "sent"
// once the mailbox accepted the reply.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long a delivered marker is remembered. Approved drafts
	// are marked sent within one poll cycle, so a week is ample.
	DefaultTTL = 7 * 24 * time.Hour

	// DefaultClaimTTL bounds how long an undelivered claim blocks a retry.
	DefaultClaimTTL = time.Hour

	// keyPrefix namespaces guard keys in Redis.
	keyPrefix = "secretary:sent:"

	claimedValue   = "claimed"
	deliveredValue = "sent"
)

// Filter tracks which drafts have been claimed for sending and which were
// actually delivered.
type Filter struct {
	rdb      *redis.Client
	ttl      time.Duration
	claimTTL time.Duration
}

// NewFilter creates a send guard backed by Redis. A non-positive ttl uses DefaultTTL.
func NewFilter(rdb *redis.Client, ttl time.Duration) *Filter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Filter{
		rdb:      rdb,
		ttl:      ttl,
		claimTTL: min(DefaultClaimTTL, ttl),
	}
}

// IsNew returns true if key has NOT been claimed before.
// If true, the key is claimed atomically (SETNX).
func (f *Filter) IsNew(ctx context.Context, key string) (bool, error) {
	set, err := f.rdb.SetNX(ctx, keyPrefix+key, claimedValue, f.claimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}
	return set, nil
}

// MarkDelivered records that the reply for key reached the mailbox.
func (f *Filter) MarkDelivered(ctx context.Context, key string) error {
	if err := f.rdb.Set(ctx, keyPrefix+key, deliveredValue, f.ttl).Err(); err != nil {
		return fmt.Errorf("dedup SET delivered: %w", err)
	}
	return nil
}

// Delivered reports whether MarkDelivered was recorded for key. A key that is
// only claimed, or absent, is not delivered.
func (f *Filter) Delivered(ctx context.Context, key string) (bool, error) {
	v, err := f.rdb.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup GET: %w", err)
	}
	return v == deliveredValue, nil
}

// Forget releases a claim so the key can be retried.
func (f *Filter) Forget(ctx context.Context, key string) error {
	if err := f.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("dedup DEL: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (f *Filter) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return f.rdb.Ping(ctx).Err()
}
