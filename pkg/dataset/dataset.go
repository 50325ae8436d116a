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

// Package dataset loads benchmark samples and narrows them to a worklist.
package dataset

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/skelbench/pkg/table"
	"gitlab.com/tozd/go/errors"
)

var (
	ErrDatasetNotFound      = errors.Base("dataset not found")
	ErrTestSuiteDirNotFound = errors.Base("test suite directory not found")
	ErrMissingColumn        = errors.Base("dataset is missing a required column")
)

// Dataset column names.
const (
	ColumnID               = "id"
	ColumnRepositoryName   = "repository_name"
	ColumnFilePath         = "file_path"
	ColumnClassName        = "class_name"
	ColumnHumanWrittenCode = "human_written_code"
	ColumnClassSkeleton    = "class_skeleton"
	ColumnSnippetID        = "snippet_id"
	ColumnGeneratedCode    = "generated_code"
)

// Columns are the required dataset columns, in output order.
var Columns = []string{
	ColumnID,
	ColumnRepositoryName,
	ColumnFilePath,
	ColumnClassName,
	ColumnHumanWrittenCode,
	ColumnClassSkeleton,
	ColumnSnippetID,
}

// OutputColumns are Columns plus the generated text.
var OutputColumns = append(append([]string{}, Columns...), ColumnGeneratedCode)

// 🧩 Sample is one class from the benchmark dataset
type Sample struct {
	ID               string
	RepositoryName   string
	FilePath         string
	ClassName        string
	HumanWrittenCode string
	ClassSkeleton    string
	SnippetID        string

	// GeneratedCode is set once a provider has answered.
	GeneratedCode string
}

// HasSkeleton reports whether the sample carries a usable prompt.
func (s Sample) HasSkeleton() bool {
	return strings.TrimSpace(s.ClassSkeleton) != ""
}

// OutputRow returns the sample's values in OutputColumns order.
func (s Sample) OutputRow() []string {
	return []string{
		s.ID,
		s.RepositoryName,
		s.FilePath,
		s.ClassName,
		s.HumanWrittenCode,
		s.ClassSkeleton,
		s.SnippetID,
		s.GeneratedCode,
	}
}

// Worklist is the ordered set of samples sent for generation.
type Worklist []Sample

// SnippetIDs returns the snippet ids in order.
func (w Worklist) SnippetIDs() []string {
	ids := make([]string, len(w))
	for i, s := range w {
		ids[i] = s.SnippetID
	}
	return ids
}

// LoadOptions tune how a dataset file is read.
type LoadOptions struct {
	// Limit keeps only the first Limit samples when positive.
	Limit int
}

// 📖 Load reads samples from a dataset CSV. Extra columns are ignored.
func Load(ctx context.Context, path string, opts LoadOptions) ([]Sample, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Errorf("%s: %w", path, ErrDatasetNotFound)
		}
		return nil, errors.Errorf("checking dataset %s: %w", path, err)
	}

	tbl, err := table.ReadCSV(path)
	if err != nil {
		return nil, errors.Errorf("loading dataset: %w", err)
	}

	idx := make(map[string]int, len(Columns))
	for _, col := range Columns {
		i := tbl.Index(col)
		if i < 0 {
			return nil, errors.Errorf("%s in %s: %w", col, path, ErrMissingColumn)
		}
		idx[col] = i
	}

	samples := make([]Sample, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		if opts.Limit > 0 && len(samples) >= opts.Limit {
			break
		}
		samples = append(samples, Sample{
			ID:               row[idx[ColumnID]],
			RepositoryName:   row[idx[ColumnRepositoryName]],
			FilePath:         row[idx[ColumnFilePath]],
			ClassName:        row[idx[ColumnClassName]],
			HumanWrittenCode: row[idx[ColumnHumanWrittenCode]],
			ClassSkeleton:    row[idx[ColumnClassSkeleton]],
			SnippetID:        row[idx[ColumnSnippetID]],
		})
	}

	zerolog.Ctx(ctx).Debug().Str("path", path).Int("samples", len(samples)).Msg("loaded dataset")
	return samples, nil
}
