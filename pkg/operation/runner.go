// Copyright 2025 walteh LLC
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

package operation

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/skelbench/pkg/metrics"
	"github.com/walteh/skelbench/pkg/provider"
	"gitlab.com/tozd/go/errors"
)

// 🏃 Runner executes operations, retrying batch failures
type Runner struct {
	retries int
	backoff time.Duration
	sleep   metrics.SleepFunc
}

// 🏗️ NewRunner creates a runner that retries a failed batch up to retries
// times, waiting attempt*backoff before each retry
func NewRunner(retries int, backoff time.Duration) *Runner {
	if retries < 0 {
		retries = 0
	}
	return &Runner{
		retries: retries,
		backoff: backoff,
		sleep:   metrics.SleepContext,
	}
}

// 🏃 Run executes an operation. Only errors wrapping provider.ErrBatchFailed
// are retried.
func (r *Runner) Run(ctx context.Context, op Operation) error {
	logger := zerolog.Ctx(ctx).With().Str("operation", op.Name()).Logger()

	var err error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * r.backoff
			logger.Warn().Err(err).Int("attempt", attempt+1).Dur("wait", wait).Msg("retrying batch")
			if serr := r.sleep(ctx, wait); serr != nil {
				return errors.Errorf("operation cancelled: %w", serr)
			}
		}

		err = op.Execute(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, provider.ErrBatchFailed) {
			return errors.Errorf("executing %s: %w", op.Name(), err)
		}
	}

	return errors.Errorf("executing %s after %d attempts: %w", op.Name(), r.retries+1, err)
}
