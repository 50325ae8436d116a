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

// Package toolexec runs external command line tools (git, cloc) behind a
// single seam so that callers can be tested with a fake Runner.
package toolexec

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// DefaultTimeout bounds a command when neither the Command nor the runner
// specifies one.
const DefaultTimeout = 60 * time.Second

// waitDelay caps how long Run waits on output pipes held open by orphaned
// children (git spawns helpers) once the process is killed.
const waitDelay = 2 * time.Second

var (
	// ErrToolNotFound is returned when the binary cannot be resolved on PATH.
	ErrToolNotFound = errors.Base("tool not found")
	// ErrTimeout is returned when the command outlives its timeout.
	ErrTimeout = errors.Base("tool timed out")
)

// 🔧 Command describes one invocation of an external tool
type Command struct {
	Name    string        // binary name or path
	Args    []string      // arguments, not shell-expanded
	Dir     string        // working directory, empty for the current one
	Timeout time.Duration // zero falls back to the runner default
	Secrets []string      // values masked as *** wherever the command is rendered
}

// String renders the command for logs with every secret masked.
func (c Command) String() string {
	s := c.Name
	if len(c.Args) > 0 {
		s += " " + strings.Join(c.Args, " ")
	}
	return Mask(s, c.Secrets...)
}

// Mask replaces every non-empty secret in text with ***.
func Mask(text string, secrets ...string) string {
	for _, secret := range secrets {
		if secret != "" {
			text = strings.ReplaceAll(text, secret, "***")
		}
	}
	return text
}

// 📦 Result holds the captured outcome of a finished command
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
	TimedOut bool
}

// Success reports whether the command exited zero.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0 && !r.TimedOut
}

// StderrText returns stderr trimmed of surrounding whitespace.
func (r *Result) StderrText() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(string(r.Stderr))
}

// 🏃 Runner executes a Command.
//
// A non-zero exit is not an error: it is reported through Result.ExitCode.
// Errors are reserved for failures to run at all (missing binary, timeout,
// cancelled context).
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner is the os/exec backed Runner.
type ExecRunner struct {
	timeout  time.Duration
	lookPath func(string) (string, error)
}

// 🏭 NewExecRunner creates a runner whose commands default to timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecRunner{
		timeout:  timeout,
		lookPath: exec.LookPath,
	}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	bin, err := r.lookPath(cmd.Name)
	if err != nil {
		return nil, errors.Errorf("resolving %q: %w: %s", cmd.Name, ErrToolNotFound, err.Error())
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(runCtx, bin, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdout = &stdout
	c.Stderr = &stderr
	c.WaitDelay = waitDelay

	logger.Debug().Str("command", cmd.String()).Dur("timeout", timeout).Msg("running tool")

	start := time.Now()
	runErr := c.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if runErr == nil {
		return res, nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		res.TimedOut = true
		res.ExitCode = -1
		return res, errors.Errorf("running %s after %s: %w", cmd.Name, timeout, ErrTimeout)
	}
	if ctx.Err() != nil {
		return res, errors.Errorf("running %s: %w", cmd.Name, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		logger.Debug().Str("command", cmd.String()).Int("exit_code", res.ExitCode).Msg("tool exited non-zero")
		return res, nil
	}

	return res, errors.Errorf("running %s: %w", cmd.Name, runErr)
}
