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

package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/skelbench/cmd/skelbench/commands"
	"github.com/walteh/skelbench/cmd/skelbench/opts"
	"github.com/walteh/skelbench/pkg/config"
	"github.com/walteh/skelbench/pkg/log"
	"gitlab.com/tozd/go/errors"

	// registers the openai, together and mistral backends
	_ "github.com/walteh/skelbench/pkg/provider/openai"
)

// rootFlags holds the persistent flags shared by every command
type rootFlags struct {
	configFile string
	debug      bool
	envFiles   []string
}

// newRootCmd creates the skelbench command tree
func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	rootOpts := &opts.RootOpts{}

	cmd := &cobra.Command{
		Use:   "skelbench",
		Short: "Benchmark tooling for class-skeleton code generation",
		Long: `skelbench drives LLM code generation over a dataset of class skeletons
and collects line-count metrics for the source repositories.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx, runID := setupLogging(cmd.Context(), flags.debug)
			cmd.SetContext(ctx)

			if err := config.LoadEnv(flags.envFiles...); err != nil {
				return err
			}

			cfg, err := config.LoadOrDefault(ctx, flags.configFile, cmd.Flags().Changed("config"))
			if err != nil {
				return errors.Errorf("loading config: %w", err)
			}

			zerolog.Ctx(ctx).Debug().Str("config", cfg.Location()).Msg("configuration ready")

			rootOpts.Config = cfg
			rootOpts.RunID = runID
			return nil
		},
	}

	addRootFlags(cmd, flags)

	cmd.AddCommand(
		commands.NewGenerateCmd(rootOpts),
		commands.NewMetricsCmd(rootOpts),
		commands.NewVersionCmd(),
	)

	return cmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, flags *rootFlags) {
	cmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", config.DefaultFile, "config file path (.yaml, .json or .hcl)")
	cmd.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().StringSliceVar(&flags.envFiles, "env-file", []string{".env"}, "env files to load before reading the config")
}

// setupLogging builds the structured logger and the console logger and
// stores both in ctx
func setupLogging(ctx context.Context, debug bool) (context.Context, string) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	runID := uuid.NewString()
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Str("run_id", runID).
		Logger()

	ctx = zlog.WithContext(ctx)
	ctx = log.NewContext(ctx, log.New(os.Stdout, zlog))
	return ctx, runID
}
