// Copyright 2025 The Deployd Authors
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

// Package retry wraps remote mutations in bounded exponential backoff.
//
// Only mutating calls go through the executor: existence-check reads are
// answered by the cluster's own not-found semantics and are not retried.
// Exhaustion wraps the last underlying error with the operation's
// description, so callers compose a breadcrumb trail as the error
// propagates.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/go-logr/logr"
)

// Policy bounds the retry behavior of one remote operation.
type Policy struct {
	// MaxRetries is the number of reattempts after the initial attempt.
	MaxRetries int

	// BackoffFactor multiplies the delay after every failed attempt.
	BackoffFactor float64

	// MinDelay is the delay before the first reattempt.
	MinDelay time.Duration

	// MaxDelay caps the computed delay.
	MaxDelay time.Duration

	// Jitter randomizes each delay by ±20% to avoid thundering herds.
	Jitter bool
}

// DefaultPolicy returns the policy used for cluster mutations.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:    5,
		BackoffFactor: 2.0,
		MinDelay:      100 * time.Millisecond,
		MaxDelay:      30 * time.Second,
		Jitter:        true,
	}
}

// Do runs op, reattempting on failure per the policy. Every failed attempt
// is logged with the description and attempt count. The context is honored
// both between attempts and while sleeping. After exhaustion the last error
// is returned wrapped with the description.
func Do(ctx context.Context, log logr.Logger, policy Policy, description string, op func() error) error {
	return DoFiltered(ctx, log, policy, description, nil, op)
}

// DoFiltered is Do with a retryability filter: an error for which retryable
// returns false is returned immediately, without backoff and without the
// exhaustion wrapping. A nil filter retries every error.
func DoFiltered(ctx context.Context, log logr.Logger, policy Policy, description string, retryable func(error) bool, op func() error) error {
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", description, ctx.Err())
		default:
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}

		log.Info("operation failed, will retry",
			"operation", description,
			"attempt", attempt+1,
			"maxAttempts", policy.MaxRetries+1,
			"error", lastErr.Error())

		if attempt == policy.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", description, ctx.Err())
		case <-time.After(policy.delay(attempt)):
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", description, policy.MaxRetries+1, lastErr)
}

// delay computes the backoff before reattempt number attempt+1.
func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.MinDelay) * math.Pow(p.BackoffFactor, float64(attempt))
	if p.Jitter {
		d *= 1 + (rand.Float64()*0.4 - 0.2)
	}
	if capped := float64(p.MaxDelay); d > capped {
		d = capped
	}
	return time.Duration(d)
}
