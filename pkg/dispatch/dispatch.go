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

// Package dispatch sends a worklist to a generator and persists the answers.
package dispatch

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/skelbench/pkg/dataset"
	"github.com/walteh/skelbench/pkg/provider"
	"github.com/walteh/skelbench/pkg/table"
	"gitlab.com/tozd/go/errors"
)

// 📨 Request describes one generation batch
type Request struct {
	Worklist    dataset.Worklist
	Provider    string
	Mode        provider.Mode
	Model       string
	PromptDir   string
	DataVersion string
	DocstrType  string
}

// 📄 Result is the answer for one sample. Text is nil when generation failed.
type Result struct {
	SampleID string
	Text     *string
}

// Kept reports whether the result will be persisted.
func (r Result) Kept() bool {
	return r.Text != nil && *r.Text != ""
}

// Options configure a Dispatcher.
type Options struct {
	Generator  provider.Generator
	OutputRoot string
	Format     table.Format
}

// 🎯 Dispatcher runs generation batches
type Dispatcher struct {
	generator  provider.Generator
	outputRoot string
	format     table.Format
}

// 🏭 New creates a dispatcher
func New(opts Options) (*Dispatcher, error) {
	if opts.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if opts.OutputRoot == "" {
		return nil, errors.New("output root is required")
	}
	if opts.Format == "" {
		opts.Format = table.FormatCSV
	}
	if _, err := table.WriterFor(opts.Format); err != nil {
		return nil, err
	}

	return &Dispatcher{
		generator:  opts.Generator,
		outputRoot: opts.OutputRoot,
		format:     opts.Format,
	}, nil
}

// ModelSlug makes a model id safe as a single path segment.
func ModelSlug(model string) string {
	return strings.NewReplacer("/", "__", ":", "__").Replace(model)
}

// 🗂️ OutputPath returns where the results of req are written
func (d *Dispatcher) OutputPath(req Request) string {
	return filepath.Join(
		d.outputRoot,
		req.DataVersion,
		req.DocstrType,
		req.Provider,
		ModelSlug(req.Model),
		string(req.Mode)+"."+d.format.Ext(),
	)
}

// 🚀 Dispatch generates code for every sample in req.Worklist and writes the
// samples that received text, in worklist order. A generator error or a
// result count mismatch wraps provider.ErrBatchFailed and writes nothing.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) ([]Result, error) {
	logger := zerolog.Ctx(ctx).With().
		Str("provider", req.Provider).
		Str("model", req.Model).
		Str("mode", string(req.Mode)).
		Logger()

	if req.Mode != provider.ModeDirect && req.Mode != provider.ModeFewShot {
		return nil, errors.Errorf("unknown mode %q", req.Mode)
	}

	out := d.OutputPath(req)

	if len(req.Worklist) == 0 {
		logger.Warn().Msg("empty worklist, writing header only")
		if err := table.Write(ctx, out, table.New(dataset.OutputColumns...)); err != nil {
			return nil, errors.Errorf("writing results: %w", err)
		}
		return []Result{}, nil
	}

	texts, err := d.generate(ctx, req)
	if err != nil {
		return nil, errors.Errorf("dispatching %d samples: %w", len(req.Worklist), provider.NewBatchError(req.Provider, err))
	}
	if len(texts) != len(req.Worklist) {
		return nil, provider.NewBatchError(req.Provider,
			errors.Errorf("got %d results for %d samples", len(texts), len(req.Worklist)))
	}

	results := make([]Result, len(req.Worklist))
	tbl := table.New(dataset.OutputColumns...)
	for i, sample := range req.Worklist {
		results[i] = Result{SampleID: sample.ID, Text: texts[i]}
		if !results[i].Kept() {
			logger.Debug().Str("id", sample.ID).Msg("dropping sample without generated code")
			continue
		}
		sample.GeneratedCode = *texts[i]
		if err := tbl.Append(sample.OutputRow()...); err != nil {
			return nil, errors.Errorf("sample %s: %w", sample.ID, err)
		}
	}

	if err := table.Write(ctx, out, tbl); err != nil {
		return nil, errors.Errorf("writing results: %w", err)
	}

	logger.Info().
		Int("requested", len(results)).
		Int("written", len(tbl.Rows)).
		Str("path", out).
		Msg("generation batch written")

	return results, nil
}

func (d *Dispatcher) generate(ctx context.Context, req Request) ([]*string, error) {
	switch req.Mode {
	case provider.ModeDirect:
		payloads := make([]string, len(req.Worklist))
		for i, s := range req.Worklist {
			payloads[i] = s.ClassSkeleton
		}
		return d.generator.Generate(ctx, payloads)
	case provider.ModeFewShot:
		return d.generator.GenerateFewShot(ctx, req.Worklist.SnippetIDs(), req.PromptDir)
	}
	return nil, errors.Errorf("unknown mode %q", req.Mode)
}

// Count returns how many results were kept.
func Count(results []Result) (kept, dropped int) {
	for _, r := range results {
		if r.Kept() {
			kept++
		} else {
			dropped++
		}
	}
	return kept, dropped
}
