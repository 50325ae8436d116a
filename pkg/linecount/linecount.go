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

// Package linecount runs cloc against a directory and reads its JSON summary.
package linecount

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/skelbench/pkg/toolexec"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrInvalidOutput means the tool output is not the JSON shape we expect.
	ErrInvalidOutput = errors.Base("invalid line count output")
	// ErrToolFailed means the tool ran but exited non-zero.
	ErrToolFailed = errors.Base("line count tool failed")
)

// DefaultExcludeDirs are version control metadata directories skipped by cloc.
var DefaultExcludeDirs = []string{".git", ".hg", ".svn"}

// 📊 Counts is the aggregate line count of a directory
type Counts struct {
	Blank   int `json:"blank"`
	Code    int `json:"code"`
	Comment int `json:"comment"`
}

// Add accumulates other into c.
func (c *Counts) Add(other Counts) {
	c.Blank += other.Blank
	c.Code += other.Code
	c.Comment += other.Comment
}

// IsZero reports whether all three counts are zero.
func (c Counts) IsZero() bool {
	return c == Counts{}
}

// summary mirrors the fields we read from cloc's SUM record. Pointers let a
// present-but-null field decode the same as a missing one.
type summary struct {
	Blank   *int `json:"blank"`
	Code    *int `json:"code"`
	Comment *int `json:"comment"`
}

// Parse reads the SUM record of cloc --json output. Missing fields count as
// zero, and a missing SUM record yields all zeros.
func Parse(data []byte) (Counts, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Counts{}, errors.Errorf("empty output: %w", ErrInvalidOutput)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return Counts{}, errors.Errorf("decoding report: %w: %s", ErrInvalidOutput, err.Error())
	}

	raw, ok := top["SUM"]
	if !ok || string(raw) == "null" {
		return Counts{}, nil
	}

	var sum summary
	if err := json.Unmarshal(raw, &sum); err != nil {
		return Counts{}, errors.Errorf("decoding SUM: %w: %s", ErrInvalidOutput, err.Error())
	}

	return Counts{
		Blank:   deref(sum.Blank),
		Code:    deref(sum.Code),
		Comment: deref(sum.Comment),
	}, nil
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// 🔢 Counter counts lines below a directory.
//
// On error the returned Counts are zero; callers decide whether the error is
// fatal.
type Counter interface {
	CountLines(ctx context.Context, dir string) (Counts, error)
}

// ClocCounter is a Counter backed by the cloc binary.
type ClocCounter struct {
	runner      toolexec.Runner
	bin         string
	timeout     time.Duration
	excludeDirs []string
}

// 🏭 NewClocCounter creates a counter invoking bin through runner.
func NewClocCounter(runner toolexec.Runner, bin string, timeout time.Duration) *ClocCounter {
	if bin == "" {
		bin = "cloc"
	}
	return &ClocCounter{
		runner:      runner,
		bin:         bin,
		timeout:     timeout,
		excludeDirs: DefaultExcludeDirs,
	}
}

// Args returns the cloc arguments used for dir.
func (c *ClocCounter) Args(dir string) []string {
	return []string{
		"--json",
		"--quiet",
		"--exclude-dir=" + strings.Join(c.excludeDirs, ","),
		dir,
	}
}

// CountLines implements Counter.
func (c *ClocCounter) CountLines(ctx context.Context, dir string) (Counts, error) {
	res, err := c.runner.Run(ctx, toolexec.Command{
		Name:    c.bin,
		Args:    c.Args(dir),
		Timeout: c.timeout,
	})
	if err != nil {
		return Counts{}, errors.Errorf("running %s: %w", c.bin, err)
	}

	if !res.Success() {
		return Counts{}, errors.Errorf("%s exited %d: %w: %s", c.bin, res.ExitCode, ErrToolFailed, res.StderrText())
	}

	counts, err := Parse(res.Stdout)
	if err != nil {
		return Counts{}, errors.Errorf("parsing %s output: %w", c.bin, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("dir", dir).
		Int("blank", counts.Blank).
		Int("code", counts.Code).
		Int("comment", counts.Comment).
		Msg("counted lines")

	return counts, nil
}
