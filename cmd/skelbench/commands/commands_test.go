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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/skelbench/cmd/skelbench/opts"
	"github.com/walteh/skelbench/pkg/config"
	"github.com/walteh/skelbench/pkg/log"
	"github.com/walteh/skelbench/pkg/provider"
	"github.com/walteh/skelbench/pkg/table"
)

// echoGenerator answers every prompt with the prompt itself
type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, payloads []string) ([]*string, error) {
	out := make([]*string, len(payloads))
	for i := range payloads {
		p := payloads[i]
		out[i] = &p
	}
	return out, nil
}

func (echoGenerator) GenerateFewShot(_ context.Context, snippetIDs []string, _ string) ([]*string, error) {
	return make([]*string, len(snippetIDs)), nil
}

func init() {
	provider.Register("echo", func(context.Context, provider.Settings) (provider.Generator, error) {
		return echoGenerator{}, nil
	})
}

func testContext(t *testing.T) context.Context {
	ctx := zerolog.New(zerolog.TestWriter{T: t}).WithContext(context.Background())
	return log.NewContext(ctx, log.New(io.Discard, zerolog.Nop()))
}

func TestParseGenerateArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    generateArgs
		wantErr bool
	}{
		{
			name: "filtered_direct",
			args: []string{"v1", "openai", "numpy", "gpt-4o", "false", "false"},
			want: generateArgs{DataVersion: "v1", Provider: "openai", DocstrType: "numpy", Model: "gpt-4o"},
		},
		{
			name: "ablation_rag",
			args: []string{"v2", "together-like", "google", "meta/llama", "true", "1"},
			want: generateArgs{DataVersion: "v2", Provider: "together-like", DocstrType: "google", Model: "meta/llama", Ablation: true, RAG: true},
		},
		{
			name:    "bad_ablation",
			args:    []string{"v1", "openai", "numpy", "gpt", "maybe", "false"},
			wantErr: true,
		},
		{
			name:    "bad_rag",
			args:    []string{"v1", "openai", "numpy", "gpt", "false", "yes"},
			wantErr: true,
		},
		{
			name:    "empty_model",
			args:    []string{"v1", "openai", "numpy", "", "false", "false"},
			wantErr: true,
		},
		{
			name:    "too_few",
			args:    []string{"v1", "openai"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseGenerateArgs(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMetricsArgs(t *testing.T) {
	oneAndHalf := 1500 * time.Millisecond
	zero := time.Duration(0)

	tests := []struct {
		name    string
		args    []string
		want    metricsArgs
		wantErr bool
	}{
		{
			name: "source_only",
			args: []string{"repos.txt"},
			want: metricsArgs{Source: "repos.txt"},
		},
		{
			name: "source_and_token",
			args: []string{"github:org/octo", "tok"},
			want: metricsArgs{Source: "github:org/octo", Token: "tok"},
		},
		{
			name: "fractional_delay",
			args: []string{"repos.txt", "", "1.5"},
			want: metricsArgs{Source: "repos.txt", Delay: &oneAndHalf},
		},
		{
			name: "zero_delay",
			args: []string{"repos.txt", "tok", "0"},
			want: metricsArgs{Source: "repos.txt", Token: "tok", Delay: &zero},
		},
		{
			name:    "bad_delay",
			args:    []string{"repos.txt", "tok", "soon"},
			wantErr: true,
		},
		{
			name:    "negative_delay",
			args:    []string{"repos.txt", "tok", "-1"},
			wantErr: true,
		},
		{
			name:    "no_args",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMetricsArgs(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateCmd_Ablation(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Data.Root = filepath.Join(root, "data")
	cfg.Output.Root = filepath.Join(root, "out")

	baseline := cfg.BaselinePath("v1", "numpy")
	require.NoError(t, os.MkdirAll(filepath.Dir(baseline), 0755))
	require.NoError(t, os.WriteFile(baseline, []byte(
		"id,repository_name,file_path,class_name,human_written_code,class_skeleton,snippet_id\n"+
			"1,r,a.py,A,code,class A:,11\n"+
			"2,r,b.py,B,code,class B:,12\n"), 0644))

	out := &bytes.Buffer{}
	cmd := NewGenerateCmd(&opts.RootOpts{Config: cfg})
	cmd.SetArgs([]string{"v1", "echo", "numpy", "org/model", "true", "false", "--output-format", "jsonl"})
	cmd.SetOut(out)

	require.NoError(t, cmd.ExecuteContext(testContext(t)))

	path := filepath.Join(cfg.Output.Root, "v1", "numpy", "echo", "org__model", "direct.jsonl")
	_, err := os.Stat(path)
	require.NoError(t, err, "output should be written")
	assert.Contains(t, out.String(), "generation")

	format, err := table.FormatFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, table.FormatJSONL, format)
}

func TestGenerateCmd_UnknownProvider(t *testing.T) {
	cmd := NewGenerateCmd(&opts.RootOpts{Config: config.Default()})
	cmd.SetArgs([]string{"v1", "nope", "numpy", "m", "true", "false"})
	cmd.SetOut(io.Discard)

	err := cmd.ExecuteContext(testContext(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrUnknownProvider)
}

func TestVersionCmd(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, out string)
	}{
		{
			name: "table",
			args: []string{},
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "providers")
				assert.Contains(t, out, runtime.Version())
			},
		},
		{
			name: "json",
			args: []string{"--json"},
			check: func(t *testing.T, out string) {
				var info BuildInfo
				require.NoError(t, json.Unmarshal([]byte(out), &info), "output should be JSON")
				assert.Equal(t, runtime.Version(), info.Go)
				assert.Contains(t, info.Providers, "echo", "registered providers should be listed")
				assert.NotEmpty(t, info.Module)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			cmd := NewVersionCmd()
			cmd.SetOut(out)
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())
			tt.check(t, out.String())
		})
	}
}

func TestBuildInfo_Rows(t *testing.T) {
	info := BuildInfo{
		Module:    "github.com/walteh/skelbench",
		Version:   "v1.2.3",
		Go:        "go1.23.5",
		Platform:  "linux/amd64",
		Commit:    "abc123",
		Dirty:     true,
		Deps:      map[string]string{"modernc.org/sqlite": "v1.28.0"},
		Providers: []string{"mistral", "openai"},
	}

	assert.Equal(t, [][]string{
		{"github.com/walteh/skelbench", "v1.2.3"},
		{"go", "go1.23.5"},
		{"platform", "linux/amd64"},
		{"commit", "abc123 (dirty)"},
		{"providers", "mistral, openai"},
		{"modernc.org/sqlite", "v1.28.0"},
	}, info.Rows())
}
