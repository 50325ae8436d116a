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

package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/skelbench/pkg/provider"
	"github.com/walteh/skelbench/pkg/table"
	"gitlab.com/tozd/go/errors"
)

// Defaults applied to unset fields.
const (
	DefaultDataRoot      = "data"
	DefaultPromptRoot    = "prompts"
	DefaultTestSuiteDir  = "test_suites"
	DefaultTestSuiteExt  = ".py"
	DefaultOutputRoot    = "output"
	DefaultGitBin        = "git"
	DefaultClocBin       = "cloc"
	DefaultToolTimeout   = "60s"
	DefaultMetricsOutput = "metrics.csv"
)

// 📝 Config is the root skelbench configuration
type Config struct {
	Data      *DataConfig      `json:"data,omitempty" yaml:"data,omitempty" hcl:"data,block"`
	Output    *OutputConfig    `json:"output,omitempty" yaml:"output,omitempty" hcl:"output,block"`
	Providers []ProviderConfig `json:"providers,omitempty" yaml:"providers,omitempty" hcl:"provider,block"`
	Metrics   *MetricsConfig   `json:"metrics,omitempty" yaml:"metrics,omitempty" hcl:"metrics,block"`

	location string
}

// 📂 DataConfig locates datasets, test suites and prompts
type DataConfig struct {
	Root         string `json:"root,omitempty" yaml:"root,omitempty" hcl:"root,optional"`
	PromptRoot   string `json:"prompt_root,omitempty" yaml:"prompt_root,omitempty" hcl:"prompt_root,optional"`
	TestSuiteDir string `json:"test_suite_dir,omitempty" yaml:"test_suite_dir,omitempty" hcl:"test_suite_dir,optional"`
	TestSuiteExt string `json:"test_suite_ext,omitempty" yaml:"test_suite_ext,omitempty" hcl:"test_suite_ext,optional"`
}

// 💾 OutputConfig controls where generation results go
type OutputConfig struct {
	Root   string `json:"root,omitempty" yaml:"root,omitempty" hcl:"root,optional"`
	Format string `json:"format,omitempty" yaml:"format,omitempty" hcl:"format,optional"`
}

// 🔌 ProviderConfig overrides the defaults of one generation backend
type ProviderConfig struct {
	Name            string  `json:"name" yaml:"name" hcl:"name,label"`
	BaseURL         string  `json:"base_url,omitempty" yaml:"base_url,omitempty" hcl:"base_url,optional"`
	APIKeyEnv       string  `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty" hcl:"api_key_env,optional"`
	Temperature     float32 `json:"temperature,omitempty" yaml:"temperature,omitempty" hcl:"temperature,optional"`
	MaxTokens       int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" hcl:"max_tokens,optional"`
	Timeout         string  `json:"timeout,omitempty" yaml:"timeout,omitempty" hcl:"timeout,optional"`
	Concurrency     int     `json:"concurrency,omitempty" yaml:"concurrency,omitempty" hcl:"concurrency,optional"`
	SystemPrompt    string  `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty" hcl:"system_prompt,optional"`
	PromptCacheSize int     `json:"prompt_cache_size,omitempty" yaml:"prompt_cache_size,omitempty" hcl:"prompt_cache_size,optional"`
}

// 📊 MetricsConfig configures repository metrics collection
type MetricsConfig struct {
	GitBin       string `json:"git_bin,omitempty" yaml:"git_bin,omitempty" hcl:"git_bin,optional"`
	ClocBin      string `json:"cloc_bin,omitempty" yaml:"cloc_bin,omitempty" hcl:"cloc_bin,optional"`
	CloneTimeout string `json:"clone_timeout,omitempty" yaml:"clone_timeout,omitempty" hcl:"clone_timeout,optional"`
	CountTimeout string `json:"count_timeout,omitempty" yaml:"count_timeout,omitempty" hcl:"count_timeout,optional"`
	TempDir      string `json:"temp_dir,omitempty" yaml:"temp_dir,omitempty" hcl:"temp_dir,optional"`
	Delay        string `json:"delay,omitempty" yaml:"delay,omitempty" hcl:"delay,optional"`
	Output       string `json:"output,omitempty" yaml:"output,omitempty" hcl:"output,optional"`
}

// 🏭 Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Location returns the file the config was loaded from, if any.
func (c *Config) Location() string {
	return c.location
}

func (c *Config) applyDefaults() {
	if c.Data == nil {
		c.Data = &DataConfig{}
	}
	if c.Data.Root == "" {
		c.Data.Root = DefaultDataRoot
	}
	if c.Data.PromptRoot == "" {
		c.Data.PromptRoot = DefaultPromptRoot
	}
	if c.Data.TestSuiteDir == "" {
		c.Data.TestSuiteDir = DefaultTestSuiteDir
	}
	if c.Data.TestSuiteExt == "" {
		c.Data.TestSuiteExt = DefaultTestSuiteExt
	}

	if c.Output == nil {
		c.Output = &OutputConfig{}
	}
	if c.Output.Root == "" {
		c.Output.Root = DefaultOutputRoot
	}
	if c.Output.Format == "" {
		c.Output.Format = string(table.FormatCSV)
	}

	if c.Metrics == nil {
		c.Metrics = &MetricsConfig{}
	}
	if c.Metrics.GitBin == "" {
		c.Metrics.GitBin = DefaultGitBin
	}
	if c.Metrics.ClocBin == "" {
		c.Metrics.ClocBin = DefaultClocBin
	}
	if c.Metrics.CloneTimeout == "" {
		c.Metrics.CloneTimeout = DefaultToolTimeout
	}
	if c.Metrics.CountTimeout == "" {
		c.Metrics.CountTimeout = DefaultToolTimeout
	}
	if c.Metrics.Delay == "" {
		c.Metrics.Delay = "0s"
	}
	if c.Metrics.Output == "" {
		c.Metrics.Output = DefaultMetricsOutput
	}
}

// ✅ Validate checks a config after defaults have been applied
func Validate(ctx context.Context, c *Config) error {
	logger := zerolog.Ctx(ctx)

	if _, err := table.ParseFormat(c.Output.Format); err != nil {
		return errors.Errorf("output.format: %w", err)
	}
	if _, err := table.FormatFromPath(c.Metrics.Output); err != nil {
		return errors.Errorf("metrics.output: %w", err)
	}

	for field, value := range map[string]string{
		"metrics.clone_timeout": c.Metrics.CloneTimeout,
		"metrics.count_timeout": c.Metrics.CountTimeout,
		"metrics.delay":         c.Metrics.Delay,
	} {
		if _, err := parseDuration(value); err != nil {
			return errors.Errorf("%s: %w", field, err)
		}
	}

	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		name := provider.Canonical(p.Name)
		if name == "" {
			return errors.Errorf("providers[%d]: name is required", i)
		}
		if seen[name] {
			return errors.Errorf("providers[%d]: duplicate provider %q", i, name)
		}
		seen[name] = true

		if p.Timeout != "" {
			if _, err := parseDuration(p.Timeout); err != nil {
				return errors.Errorf("providers[%d].timeout: %w", i, err)
			}
		}
		if p.Concurrency < 0 {
			return errors.Errorf("providers[%d].concurrency must not be negative", i)
		}
		if p.Temperature < 0 || p.Temperature > 2 {
			return errors.Errorf("providers[%d].temperature must be within [0, 2]", i)
		}
	}

	logger.Debug().Str("location", c.location).Int("providers", len(c.Providers)).Msg("config validated")
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Errorf("parsing duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, errors.Errorf("duration %q must not be negative", s)
	}
	return d, nil
}

// mustDuration parses a duration that Validate has already accepted.
func mustDuration(s string) time.Duration {
	d, _ := parseDuration(s)
	return d
}

// 🗂️ DatasetPath returns <root>/<version>/<docstrType>.csv
func (c *Config) DatasetPath(version, docstrType string) string {
	return filepath.Join(c.Data.Root, version, docstrType+".csv")
}

// BaselinePath returns <root>/<version>/baseline/<docstrType>.csv
func (c *Config) BaselinePath(version, docstrType string) string {
	return filepath.Join(c.Data.Root, version, "baseline", docstrType+".csv")
}

// TestSuiteDir returns <root>/<version>/<test_suite_dir>
func (c *Config) TestSuiteDir(version string) string {
	return filepath.Join(c.Data.Root, version, c.Data.TestSuiteDir)
}

// PromptDir returns <prompt_root>/<version>/<docstrType>
func (c *Config) PromptDir(version, docstrType string) string {
	return filepath.Join(c.Data.PromptRoot, version, docstrType)
}

// OutputFormat returns the configured output table format.
func (c *Config) OutputFormat() table.Format {
	f, _ := table.ParseFormat(c.Output.Format)
	return f
}

// CloneTimeout returns metrics.clone_timeout.
func (c *Config) CloneTimeout() time.Duration {
	return mustDuration(c.Metrics.CloneTimeout)
}

// CountTimeout returns metrics.count_timeout.
func (c *Config) CountTimeout() time.Duration {
	return mustDuration(c.Metrics.CountTimeout)
}

// MetricsDelay returns metrics.delay.
func (c *Config) MetricsDelay() time.Duration {
	return mustDuration(c.Metrics.Delay)
}

// 🔌 ProviderSettings merges the provider section matching name (or its
// "-like" alias) into backend settings. The API key is read from the
// configured env var; when unset the backend falls back to its own default.
func (c *Config) ProviderSettings(name, model string) provider.Settings {
	canonical := provider.Canonical(name)
	settings := provider.Settings{Name: canonical, Model: model}

	for _, p := range c.Providers {
		if provider.Canonical(p.Name) != canonical {
			continue
		}
		settings.BaseURL = p.BaseURL
		settings.Temperature = p.Temperature
		settings.MaxTokens = p.MaxTokens
		settings.Concurrency = p.Concurrency
		settings.SystemPrompt = p.SystemPrompt
		settings.PromptCacheSize = p.PromptCacheSize
		if p.Timeout != "" {
			settings.Timeout = mustDuration(p.Timeout)
		}
		if p.APIKeyEnv != "" {
			settings.APIKey = os.Getenv(p.APIKeyEnv)
		}
		break
	}

	return settings
}
