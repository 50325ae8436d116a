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
	"encoding/json"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/skelbench/pkg/provider"
	"gitlab.com/tozd/go/errors"
)

// resultDeps are the dependencies whose versions can change benchmark output
// and so belong next to any published numbers.
var resultDeps = []string{
	"github.com/sashabaranov/go-openai",
	"github.com/google/go-github/v60",
	"modernc.org/sqlite",
}

// 🏷️ BuildInfo identifies the binary that produced a run
type BuildInfo struct {
	Module    string            `json:"module"`
	Version   string            `json:"version"`
	Go        string            `json:"go"`
	Platform  string            `json:"platform"`
	Commit    string            `json:"commit,omitempty"`
	Dirty     bool              `json:"dirty"`
	Deps      map[string]string `json:"deps,omitempty"`
	Providers []string          `json:"providers"`
}

// ReadBuildInfo collects build settings, result-relevant dependency versions
// and the registered providers.
func ReadBuildInfo() BuildInfo {
	info := BuildInfo{
		Module:    "github.com/walteh/skelbench",
		Version:   "dev",
		Go:        runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Providers: provider.Names(),
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	if bi.Main.Path != "" {
		info.Module = bi.Main.Path
	}
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		info.Version = v
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value
			if len(info.Commit) > 12 {
				info.Commit = info.Commit[:12]
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	for _, dep := range bi.Deps {
		for _, want := range resultDeps {
			if dep.Path != want {
				continue
			}
			if info.Deps == nil {
				info.Deps = make(map[string]string)
			}
			info.Deps[dep.Path] = dep.Version
		}
	}

	return info
}

// Rows returns the info as name/value pairs in display order.
func (b BuildInfo) Rows() [][]string {
	commit := b.Commit
	if b.Dirty {
		commit += " (dirty)"
	}
	rows := [][]string{
		{b.Module, b.Version},
		{"go", b.Go},
		{"platform", b.Platform},
		{"commit", commit},
		{"providers", strings.Join(b.Providers, ", ")},
	}
	for _, dep := range resultDeps {
		if v, ok := b.Deps[dep]; ok {
			rows = append(rows, []string{dep, v})
		}
	}
	return rows
}

// NewVersionCmd creates the version command
func NewVersionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build and provider information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := ReadBuildInfo()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(info); err != nil {
					return errors.Errorf("encoding build info: %w", err)
				}
				return nil
			}

			err := pterm.DefaultTable.
				WithHasHeader().
				WithBoxed().
				WithData(info.Rows()).
				WithWriter(cmd.OutOrStdout()).
				Render()
			if err != nil {
				return errors.Errorf("rendering build info: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON for run metadata")

	return cmd
}
