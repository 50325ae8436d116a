package opts

import (
	"github.com/walteh/skelbench/pkg/config"
)

// RootOpts contains shared options used by all commands. It is filled in by
// the root command before any subcommand runs.
type RootOpts struct {
	Config *config.Config
	RunID  string
}
