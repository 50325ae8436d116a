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
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/skelbench/cmd/skelbench/opts"
	"github.com/walteh/skelbench/pkg/dataset"
	"github.com/walteh/skelbench/pkg/dispatch"
	"github.com/walteh/skelbench/pkg/log"
	"github.com/walteh/skelbench/pkg/operation"
	"github.com/walteh/skelbench/pkg/provider"
	"github.com/walteh/skelbench/pkg/table"
	"gitlab.com/tozd/go/errors"
)

// generateArgs are the positional arguments of the generate command
type generateArgs struct {
	DataVersion string
	Provider    string
	DocstrType  string
	Model       string
	Ablation    bool
	RAG         bool
}

// parseGenerateArgs reads <data-version> <provider> <docstr-type> <model> <ablation> <rag>
func parseGenerateArgs(args []string) (generateArgs, error) {
	if len(args) != 6 {
		return generateArgs{}, errors.Errorf("expected 6 arguments, got %d", len(args))
	}

	ablation, err := strconv.ParseBool(args[4])
	if err != nil {
		return generateArgs{}, errors.Errorf("parsing ablation %q: %w", args[4], err)
	}
	rag, err := strconv.ParseBool(args[5])
	if err != nil {
		return generateArgs{}, errors.Errorf("parsing rag %q: %w", args[5], err)
	}

	a := generateArgs{
		DataVersion: args[0],
		Provider:    args[1],
		DocstrType:  args[2],
		Model:       args[3],
		Ablation:    ablation,
		RAG:         rag,
	}
	for name, v := range map[string]string{"data-version": a.DataVersion, "provider": a.Provider, "docstr-type": a.DocstrType, "model": a.Model} {
		if v == "" {
			return generateArgs{}, errors.Errorf("%s must not be empty", name)
		}
	}
	return a, nil
}

// NewGenerateCmd creates the generate command
func NewGenerateCmd(rootOpts *opts.RootOpts) *cobra.Command {
	var (
		retries      int
		backoff      time.Duration
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "generate <data-version> <provider> <docstr-type> <model> <ablation> <rag>",
		Short: "Generate class implementations from skeletons with an LLM backend",
		Long: `Generate builds the worklist for a dataset version and docstring type,
sends every class skeleton to the chosen provider and writes the samples that
received code to <output-root>/<data-version>/<docstr-type>/<provider>/<model>/<mode>.

ablation=true uses the baseline dataset instead of filtering by test suite.
rag=true sends the few-shot prompts from the prompt directory.`,
		Example: `  skelbench generate v1 openai numpy gpt-4o false false
  skelbench generate v1 together-like google meta-llama/Llama-3-70b true true --retries 2`,
		Args: cobra.ExactArgs(6),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := rootOpts.Config

			a, err := parseGenerateArgs(args)
			if err != nil {
				return err
			}

			ctx = zerolog.Ctx(ctx).With().Str("command", "generate").Logger().WithContext(ctx)

			format := cfg.OutputFormat()
			if cmd.Flags().Changed("output-format") {
				if format, err = table.ParseFormat(outputFormat); err != nil {
					return errors.Errorf("--output-format: %w", err)
				}
			}

			factory, err := provider.Get(a.Provider)
			if err != nil {
				return err
			}
			generator, err := factory(ctx, cfg.ProviderSettings(a.Provider, a.Model))
			if err != nil {
				return errors.Errorf("creating %s backend: %w", a.Provider, err)
			}

			dispatcher, err := dispatch.New(dispatch.Options{
				Generator:  generator,
				OutputRoot: cfg.Output.Root,
				Format:     format,
			})
			if err != nil {
				return errors.Errorf("creating dispatcher: %w", err)
			}

			op, err := operation.NewGenerateOperation(operation.GenerateOptions{
				Build: dataset.BuildOptions{
					DatasetPath:       cfg.DatasetPath(a.DataVersion, a.DocstrType),
					BaselinePath:      cfg.BaselinePath(a.DataVersion, a.DocstrType),
					TestSuiteDir:      cfg.TestSuiteDir(a.DataVersion),
					FilterByTestSuite: !a.Ablation,
					TestSuiteExt:      cfg.Data.TestSuiteExt,
				},
				Request: dispatch.Request{
					Provider:    provider.Canonical(a.Provider),
					Mode:        provider.ModeFor(a.RAG),
					Model:       a.Model,
					PromptDir:   cfg.PromptDir(a.DataVersion, a.DocstrType),
					DataVersion: a.DataVersion,
					DocstrType:  a.DocstrType,
				},
				Dispatcher:    dispatcher,
				SummaryWriter: cmd.OutOrStdout(),
				RunID:         rootOpts.RunID,
			})
			if err != nil {
				return err
			}

			log.FromContext(ctx).Header(fmt.Sprintf("generating %s/%s with %s (%s)",
				a.DataVersion, a.DocstrType, a.Model, provider.ModeFor(a.RAG)))

			return operation.NewRunner(retries, backoff).Run(ctx, op)
		},
	}

	cmd.Flags().IntVar(&retries, "retries", 0, "retry a failed batch this many times")
	cmd.Flags().DurationVar(&backoff, "retry-backoff", 5*time.Second, "wait before retry n is n times this")
	cmd.Flags().StringVar(&outputFormat, "output-format", "", "output table format: csv, jsonl or sqlite (default from config)")

	return cmd
}
