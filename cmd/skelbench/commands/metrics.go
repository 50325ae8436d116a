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

package commands

import (
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/skelbench/cmd/skelbench/opts"
	"github.com/walteh/skelbench/pkg/linecount"
	"github.com/walteh/skelbench/pkg/log"
	"github.com/walteh/skelbench/pkg/operation"
	"github.com/walteh/skelbench/pkg/remote/github"
	"github.com/walteh/skelbench/pkg/toolexec"
	"gitlab.com/tozd/go/errors"
)

// metricsArgs are the positional arguments of the metrics command
type metricsArgs struct {
	Source string
	Token  string
	// Delay is nil when the delay argument was omitted.
	Delay *time.Duration
}

// parseMetricsArgs reads <repo-source> [token] [delay-seconds]
func parseMetricsArgs(args []string) (metricsArgs, error) {
	if len(args) < 1 || len(args) > 3 {
		return metricsArgs{}, errors.Errorf("expected 1 to 3 arguments, got %d", len(args))
	}
	if args[0] == "" {
		return metricsArgs{}, errors.New("repo-source must not be empty")
	}

	a := metricsArgs{Source: args[0]}
	if len(args) > 1 {
		a.Token = args[1]
	}
	if len(args) > 2 {
		seconds, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return metricsArgs{}, errors.Errorf("parsing delay-seconds %q: %w", args[2], err)
		}
		if seconds < 0 {
			return metricsArgs{}, errors.Errorf("delay-seconds must not be negative, got %v", seconds)
		}
		d := time.Duration(seconds * float64(time.Second))
		a.Delay = &d
	}
	return a, nil
}

// NewMetricsCmd creates the metrics command
func NewMetricsCmd(rootOpts *opts.RootOpts) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "metrics <repo-source> [token] [delay-seconds]",
		Short: "Collect line counts for a list of repositories",
		Long: `Metrics shallow-clones every repository from <repo-source>, counts its
blank, code and comment lines with cloc and writes one row per repository.

<repo-source> is a text file with one owner/name per line, a CSV file with a
repository or repo_name column, or github:org/<org> / github:user/<user>.
Repositories that fail to clone are skipped; ones cloc cannot count are
recorded with zeros.`,
		Example: `  skelbench metrics repos.txt
  skelbench metrics github:org/octo-org $GITHUB_TOKEN 1.5 --output metrics.sqlite`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := rootOpts.Config

			a, err := parseMetricsArgs(args)
			if err != nil {
				return err
			}

			ctx = zerolog.Ctx(ctx).With().Str("command", "metrics").Logger().WithContext(ctx)

			delay := cfg.MetricsDelay()
			if a.Delay != nil {
				delay = *a.Delay
			}
			if !cmd.Flags().Changed("output") {
				output = cfg.Metrics.Output
			}

			runner := toolexec.NewExecRunner(cfg.CloneTimeout())

			op, err := operation.NewMetricsOperation(operation.MetricsOptions{
				Source:        a.Source,
				Token:         a.Token,
				Lister:        github.NewLister(a.Token),
				Cloner:        github.NewGitCloner(runner, cfg.Metrics.GitBin, cfg.CloneTimeout()),
				Counter:       linecount.NewClocCounter(runner, cfg.Metrics.ClocBin, cfg.CountTimeout()),
				Delay:         delay,
				TempRoot:      cfg.Metrics.TempDir,
				Output:        output,
				SummaryWriter: cmd.OutOrStdout(),
				RunID:         rootOpts.RunID,
			})
			if err != nil {
				return err
			}

			log.FromContext(ctx).Header("collecting repository metrics from " + a.Source)

			return operation.NewRunner(0, 0).Run(ctx, op)
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "metrics table path; the extension picks csv, jsonl or sqlite (default from config)")

	return cmd
}
