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

// Package metrics clones repositories one at a time and records their line
// counts.
package metrics

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/skelbench/pkg/linecount"
	"github.com/walteh/skelbench/pkg/remote"
	"github.com/walteh/skelbench/pkg/table"
	"gitlab.com/tozd/go/errors"
)

// 📊 State tracks one repository through a collection
type State int

const (
	StatePending State = iota
	StateCloning
	StateCloneFailed
	StateCloned
	StateCounting
	StateCountFailed
	StateZeroFilled
	StateCounted
	StateRecordEmitted
)

// String returns a string representation of State
func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateCloning:
		return "CLONING"
	case StateCloneFailed:
		return "CLONE_FAILED"
	case StateCloned:
		return "CLONED"
	case StateCounting:
		return "COUNTING"
	case StateCountFailed:
		return "COUNT_FAILED"
	case StateZeroFilled:
		return "ZERO_FILLED"
	case StateCounted:
		return "COUNTED"
	case StateRecordEmitted:
		return "RECORD_EMITTED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateCloneFailed || s == StateZeroFilled || s == StateRecordEmitted
}

// Columns are the persisted metrics columns.
var Columns = []string{"repository", "blank_lines", "code_lines", "comment_lines"}

// 📄 Record holds the line counts of one cloned repository
type Record struct {
	Repository   string
	BlankLines   int
	CodeLines    int
	CommentLines int
}

// Counts returns the record's line counts.
func (r Record) Counts() linecount.Counts {
	return linecount.Counts{Blank: r.BlankLines, Code: r.CodeLines, Comment: r.CommentLines}
}

// Row returns the record in Columns order.
func (r Record) Row() []string {
	return []string{
		r.Repository,
		strconv.Itoa(r.BlankLines),
		strconv.Itoa(r.CodeLines),
		strconv.Itoa(r.CommentLines),
	}
}

// Table converts records into a persistable table.
func Table(records []Record) *table.Table {
	t := table.New(Columns...)
	for _, r := range records {
		t.Rows = append(t.Rows, r.Row())
	}
	return t
}

// TransitionFunc observes a repository entering a new state.
type TransitionFunc func(repo string, from, to State)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configure a Collector.
type Options struct {
	Cloner  remote.Cloner
	Counter linecount.Counter

	// Delay is slept between repositories, never after the last.
	Delay time.Duration
	// TempRoot is the parent of per-repository clone directories. Empty
	// means the system temp dir.
	TempRoot string

	Sleep        SleepFunc
	OnTransition TransitionFunc
}

// 🎯 Collector produces metrics records for a list of repositories
type Collector struct {
	cloner       remote.Cloner
	counter      linecount.Counter
	delay        time.Duration
	tempRoot     string
	sleep        SleepFunc
	onTransition TransitionFunc
}

// 🏭 New creates a collector
func New(opts Options) (*Collector, error) {
	if opts.Cloner == nil {
		return nil, errors.New("cloner is required")
	}
	if opts.Counter == nil {
		return nil, errors.New("counter is required")
	}
	if opts.Delay < 0 {
		return nil, errors.Errorf("delay must not be negative, got %s", opts.Delay)
	}

	sleep := opts.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	return &Collector{
		cloner:       opts.Cloner,
		counter:      opts.Counter,
		delay:        opts.Delay,
		tempRoot:     opts.TempRoot,
		sleep:        sleep,
		onTransition: opts.OnTransition,
	}, nil
}

// 🔄 Collect processes refs in order. A repository that fails to clone is
// skipped; one that fails to count is recorded with zero counts. ctx is
// checked between repositories; on cancellation the records gathered so far
// are returned with ctx.Err().
func (c *Collector) Collect(ctx context.Context, refs []string, token string) ([]Record, error) {
	logger := zerolog.Ctx(ctx)

	records := make([]Record, 0, len(refs))
	cloned := 0

	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		rec, ok, err := c.collectOne(ctx, ref, token)
		if err != nil {
			return records, err
		}
		if ok {
			cloned++
			records = append(records, rec)
		}

		if i < len(refs)-1 && c.delay > 0 {
			if err := c.sleep(ctx, c.delay); err != nil {
				return records, err
			}
		}
	}

	if len(refs) > 0 && cloned == 0 {
		logger.Warn().Int("repositories", len(refs)).Msg("no repository could be cloned")
		return []Record{}, nil
	}

	return records, nil
}

// collectOne runs the state machine for a single repository. The returned
// bool is false when the repository produced no record.
func (c *Collector) collectOne(ctx context.Context, ref string, token string) (Record, bool, error) {
	logger := zerolog.Ctx(ctx).With().Str("repository", ref).Logger()

	state := StatePending
	move := func(to State) {
		if c.onTransition != nil {
			c.onTransition(ref, state, to)
		}
		logger.Trace().Stringer("from", state).Stringer("to", to).Msg("repository state")
		state = to
	}

	workDir, err := os.MkdirTemp(c.tempRoot, "skelbench-clone-*")
	if err != nil {
		return Record{}, false, errors.Errorf("creating clone directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn().Err(err).Str("dir", workDir).Msg("removing clone directory")
		}
	}()

	dest := filepath.Join(workDir, "repo")

	move(StateCloning)
	if !c.cloner.Clone(ctx, ref, token, dest) {
		move(StateCloneFailed)
		logger.Warn().Msg("skipping repository that could not be cloned")
		return Record{}, false, nil
	}
	move(StateCloned)

	move(StateCounting)
	counts, err := c.counter.CountLines(ctx, dest)
	if err != nil {
		move(StateCountFailed)
		logger.Warn().Err(err).Msg("line count failed, recording zeros")
		move(StateZeroFilled)
		return Record{Repository: ref}, true, nil
	}
	move(StateCounted)
	if counts.IsZero() {
		logger.Debug().Msg("cloc found no countable lines")
	}

	rec := Record{
		Repository:   ref,
		BlankLines:   counts.Blank,
		CodeLines:    counts.Code,
		CommentLines: counts.Comment,
	}
	move(StateRecordEmitted)

	logger.Debug().
		Int("blank", rec.BlankLines).
		Int("code", rec.CodeLines).
		Int("comment", rec.CommentLines).
		Msg("counted repository")
	return rec, true, nil
}

// SleepContext waits for d, returning early with ctx.Err() when ctx is done.
// A non-positive d only reports whether ctx is already done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
