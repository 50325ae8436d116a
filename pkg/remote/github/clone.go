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

package github

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/skelbench/pkg/remote"
	"github.com/walteh/skelbench/pkg/toolexec"
)

// 🎯 GitCloner implements remote.Cloner by shelling out to git
type GitCloner struct {
	runner  toolexec.Runner
	gitBin  string
	timeout time.Duration
}

var _ remote.Cloner = (*GitCloner)(nil)

// 🏭 NewGitCloner creates a cloner invoking gitBin through runner
func NewGitCloner(runner toolexec.Runner, gitBin string, timeout time.Duration) *GitCloner {
	if gitBin == "" {
		gitBin = "git"
	}
	return &GitCloner{
		runner:  runner,
		gitBin:  gitBin,
		timeout: timeout,
	}
}

// 🔗 CloneURL returns the https clone URL, embedding token as oauth2 basic
// auth when it is set
func CloneURL(ref remote.RepoRef, token string) string {
	if token == "" {
		return fmt.Sprintf("https://github.com/%s/%s.git", ref.Owner, ref.Name)
	}
	return fmt.Sprintf("https://oauth2:%s@github.com/%s/%s.git", token, ref.Owner, ref.Name)
}

// CloneArgs returns the git arguments for a shallow single-branch clone.
func CloneArgs(cloneURL, destDir string) []string {
	return []string{"clone", "--depth", "1", "--single-branch", cloneURL, destDir}
}

// 📥 Clone implements remote.Cloner
func (c *GitCloner) Clone(ctx context.Context, repoRef string, token string, destDir string) bool {
	logger := zerolog.Ctx(ctx).With().Str("repository", repoRef).Logger()

	ref, err := remote.ParseRepoRef(repoRef)
	if err != nil {
		logger.Warn().Err(err).Msg("skipping clone of invalid repository reference")
		return false
	}

	res, err := c.runner.Run(ctx, toolexec.Command{
		Name:    c.gitBin,
		Args:    CloneArgs(CloneURL(ref, token), destDir),
		Timeout: c.timeout,
		Secrets: secrets(token),
	})
	if err != nil {
		logger.Warn().Str("error", toolexec.Mask(err.Error(), token)).Msg("clone could not run")
		return false
	}

	if !res.Success() {
		logger.Warn().
			Int("exit_code", res.ExitCode).
			Str("stderr", toolexec.Mask(res.StderrText(), token)).
			Msg("clone failed")
		return false
	}

	logger.Debug().Dur("duration", res.Duration).Str("dest", destDir).Msg("cloned repository")
	return true
}

// secrets lists the values the runner must mask when rendering the command.
func secrets(token string) []string {
	if token == "" {
		return nil
	}
	return []string{token}
}
