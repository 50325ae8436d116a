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

package operation

import (
	"context"
	"fmt"
	"io"

	"github.com/walteh/skelbench/pkg/dataset"
	"github.com/walteh/skelbench/pkg/dispatch"
	"github.com/walteh/skelbench/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// Dispatcher is the part of *dispatch.Dispatcher used here.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) ([]dispatch.Result, error)
	OutputPath(req dispatch.Request) string
}

// GenerateOptions configure a GenerateOperation.
type GenerateOptions struct {
	Build dataset.BuildOptions
	// Request is the batch template; its Worklist is filled by Execute.
	Request    dispatch.Request
	Dispatcher Dispatcher
	// SummaryWriter receives the summary table; nil means stdout.
	SummaryWriter io.Writer
	// RunID labels the summary when set.
	RunID string
}

// 🤖 GenerateOperation builds the worklist, dispatches it and writes results
type GenerateOperation struct {
	opts     GenerateOptions
	worklist dataset.Worklist
	built    bool
	summary  Summary
}

var _ Operation = (*GenerateOperation)(nil)

// 🏭 NewGenerateOperation creates a generate operation
func NewGenerateOperation(opts GenerateOptions) (*GenerateOperation, error) {
	if opts.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if opts.Request.Provider == "" {
		return nil, errors.New("provider is required")
	}
	if opts.Request.Model == "" {
		return nil, errors.New("model is required")
	}
	return &GenerateOperation{opts: opts}, nil
}

func (o *GenerateOperation) Name() string {
	return "generate"
}

// Summary returns the summary of the last successful Execute.
func (o *GenerateOperation) Summary() Summary {
	return o.summary
}

// Execute implements Operation. The worklist is built once and reused across
// retries.
func (o *GenerateOperation) Execute(ctx context.Context) error {
	console := log.FromContext(ctx)

	if !o.built {
		worklist, err := dataset.Build(ctx, o.opts.Build)
		if err != nil {
			return errors.Errorf("building worklist: %w", err)
		}
		o.worklist = worklist
		o.built = true
		console.Infof("built worklist of %d samples", len(worklist))
	}

	req := o.opts.Request
	req.Worklist = o.worklist

	console.StartBatch(ctx, log.Batch{
		Name:   o.Name(),
		Target: fmt.Sprintf("%s/%s (%s)", req.Provider, req.Model, req.Mode),
		Items:  len(req.Worklist),
	})

	results, err := o.opts.Dispatcher.Dispatch(ctx, req)
	if err != nil {
		console.EndBatch(ctx)
		return err
	}

	for _, r := range results {
		item := log.Item{Name: r.SampleID, Kind: "sample", Outcome: log.OutcomeDone, Detail: "generated"}
		if !r.Kept() {
			item.Outcome = log.OutcomeSkipped
			item.Detail = "dropped"
		}
		console.LogItem(ctx, item)
	}
	console.EndBatch(ctx)

	generated, dropped := dispatch.Count(results)
	out := o.opts.Dispatcher.OutputPath(req)
	console.Successf("wrote %d of %d samples to %s", generated, len(results), out)

	o.summary = Summary{Title: "generation"}
	if o.opts.RunID != "" {
		o.summary.Add("run", o.opts.RunID)
	}
	o.summary.Add("provider", req.Provider)
	o.summary.Add("model", req.Model)
	o.summary.Add("mode", string(req.Mode))
	o.summary.Add("requested", fmt.Sprint(len(results)))
	o.summary.Add("generated", fmt.Sprint(generated))
	o.summary.Add("dropped", fmt.Sprint(dropped))
	o.summary.Add("output", out)

	console.LogNewline()
	return o.summary.Render(o.opts.SummaryWriter)
}
