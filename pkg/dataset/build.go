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

package dataset

import (
	"context"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// DefaultTestSuiteExt is the extension of generated test files.
const DefaultTestSuiteExt = ".py"

const testFilePrefix = "test_"

// 🏗️ BuildOptions select the dataset and how it is narrowed
type BuildOptions struct {
	// DatasetPath is the full dataset, used when FilterByTestSuite is set.
	DatasetPath string
	// BaselinePath is the separately prepared dataset used otherwise.
	BaselinePath string
	// TestSuiteDir holds test_<snippetId><ext> files.
	TestSuiteDir      string
	FilterByTestSuite bool
	TestSuiteExt      string
	Load              LoadOptions
}

// 🎯 Build produces the worklist: samples with a test file when filtering,
// the baseline dataset otherwise, and never a sample without a skeleton.
func Build(ctx context.Context, opts BuildOptions) (Worklist, error) {
	logger := zerolog.Ctx(ctx)

	if !opts.FilterByTestSuite {
		samples, err := Load(ctx, opts.BaselinePath, opts.Load)
		if err != nil {
			return nil, errors.Errorf("loading baseline dataset: %w", err)
		}
		return dropEmptySkeletons(ctx, samples), nil
	}

	snippets, err := TestSuiteSnippets(opts.TestSuiteDir, opts.TestSuiteExt)
	if err != nil {
		return nil, err
	}

	samples, err := Load(ctx, opts.DatasetPath, opts.Load)
	if err != nil {
		return nil, errors.Errorf("loading dataset: %w", err)
	}

	filtered := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if _, ok := snippets[s.SnippetID]; ok {
			filtered = append(filtered, s)
		}
	}

	logger.Debug().
		Int("dataset", len(samples)).
		Int("test_files", len(snippets)).
		Int("matched", len(filtered)).
		Msg("filtered dataset by test suite")

	return dropEmptySkeletons(ctx, filtered), nil
}

// 🔍 TestSuiteSnippets returns the snippet ids that have a test file in dir.
// Only the top level of dir is searched.
func TestSuiteSnippets(dir, ext string) (map[string]struct{}, error) {
	if ext == "" {
		ext = DefaultTestSuiteExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Errorf("%s: %w", dir, ErrTestSuiteDirNotFound)
		}
		return nil, errors.Errorf("checking test suite directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory: %w", dir, ErrTestSuiteDirNotFound)
	}

	if strings.ContainsAny(ext, "*?[]{}\\/") {
		return nil, errors.Errorf("test suite extension %q must be a plain suffix", ext)
	}

	pattern := testFilePrefix + "*" + ext
	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Errorf("listing test suite files: %w", err)
	}

	snippets := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		id := strings.TrimSuffix(strings.TrimPrefix(path.Base(m), testFilePrefix), ext)
		if id == "" {
			continue
		}
		snippets[id] = struct{}{}
	}
	return snippets, nil
}

func dropEmptySkeletons(ctx context.Context, samples []Sample) Worklist {
	out := make(Worklist, 0, len(samples))
	for _, s := range samples {
		if !s.HasSkeleton() {
			zerolog.Ctx(ctx).Debug().Str("id", s.ID).Msg("dropping sample without skeleton")
			continue
		}
		out = append(out, s)
	}
	return out
}
