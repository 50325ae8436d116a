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
	"time"

	"github.com/walteh/skelbench/pkg/linecount"
	"github.com/walteh/skelbench/pkg/log"
	"github.com/walteh/skelbench/pkg/metrics"
	"github.com/walteh/skelbench/pkg/remote"
	"github.com/walteh/skelbench/pkg/table"
	"gitlab.com/tozd/go/errors"
)

// MetricsOptions configure a MetricsOperation.
type MetricsOptions struct {
	// Source is a repository list file or a github:org/<org> or
	// github:user/<user> reference.
	Source string
	Token  string
	Lister remote.Lister

	Cloner   remote.Cloner
	Counter  linecount.Counter
	Delay    time.Duration
	TempRoot string

	// Output is the metrics table path; its extension picks the format.
	Output string
	// SummaryWriter receives the summary table; nil means stdout.
	SummaryWriter io.Writer
	// RunID labels the summary when set.
	RunID string
}

// 📊 MetricsOperation collects line counts for a list of repositories
type MetricsOperation struct {
	opts    MetricsOptions
	summary Summary
}

var _ Operation = (*MetricsOperation)(nil)

// 🏭 NewMetricsOperation creates a metrics operation
func NewMetricsOperation(opts MetricsOptions) (*MetricsOperation, error) {
	if opts.Source == "" {
		return nil, errors.New("repository source is required")
	}
	if opts.Output == "" {
		return nil, errors.New("output path is required")
	}
	if _, err := table.FormatFromPath(opts.Output); err != nil {
		return nil, errors.Errorf("output: %w", err)
	}
	return &MetricsOperation{opts: opts}, nil
}

func (o *MetricsOperation) Name() string {
	return "metrics"
}

// Summary returns the summary of the last Execute.
func (o *MetricsOperation) Summary() Summary {
	return o.summary
}

// Execute implements Operation. When collection is cancelled the records
// gathered so far are still written before the error is returned.
func (o *MetricsOperation) Execute(ctx context.Context) error {
	console := log.FromContext(ctx)

	refs, err := metrics.LoadRepoRefs(ctx, o.opts.Source, o.opts.Lister)
	if err != nil {
		return errors.Errorf("loading repositories: %w", err)
	}
	console.Infof("loaded %d repositories from %s", len(refs), o.opts.Source)

	collector, err := metrics.New(metrics.Options{
		Cloner:       o.opts.Cloner,
		Counter:      o.opts.Counter,
		Delay:        o.opts.Delay,
		TempRoot:     o.opts.TempRoot,
		OnTransition: reportTransition(ctx, console),
	})
	if err != nil {
		return errors.Errorf("creating collector: %w", err)
	}

	console.StartBatch(ctx, log.Batch{Name: o.Name(), Target: o.opts.Source, Items: len(refs)})

	records, collectErr := collector.Collect(ctx, refs, o.opts.Token)
	tally := console.EndBatch(ctx)

	if err := table.Write(ctx, o.opts.Output, metrics.Table(records)); err != nil {
		return errors.Errorf("writing metrics: %w", err)
	}

	if collectErr != nil {
		console.Warningf("stopped after %d of %d repositories", tally.Total(), len(refs))
		return errors.Errorf("collecting metrics: %w", collectErr)
	}

	if len(refs) > 0 && len(records) == 0 {
		console.Warning("no repository could be cloned")
	}
	console.Successf("wrote %d records to %s", len(records), o.opts.Output)

	var total linecount.Counts
	for _, r := range records {
		total.Add(r.Counts())
	}

	o.summary = Summary{Title: "repository metrics"}
	if o.opts.RunID != "" {
		o.summary.Add("run", o.opts.RunID)
	}
	o.summary.Add("requested", fmt.Sprint(len(refs)))
	o.summary.Add("counted", fmt.Sprint(tally.Done))
	o.summary.Add("zero-filled", fmt.Sprint(tally.ZeroFilled))
	o.summary.Add("skipped", fmt.Sprint(tally.Skipped))
	o.summary.Add("blank lines", fmt.Sprint(total.Blank))
	o.summary.Add("code lines", fmt.Sprint(total.Code))
	o.summary.Add("comment lines", fmt.Sprint(total.Comment))
	o.summary.Add("output", o.opts.Output)

	console.LogNewline()
	return o.summary.Render(o.opts.SummaryWriter)
}

// reportTransition logs each repository once it reaches a terminal state.
func reportTransition(ctx context.Context, console *log.Logger) metrics.TransitionFunc {
	return func(repo string, _, to metrics.State) {
		if !to.Terminal() {
			return
		}
		item := log.Item{Name: repo, Kind: "repository"}
		switch to {
		case metrics.StateRecordEmitted:
			item.Outcome, item.Detail = log.OutcomeDone, "counted"
		case metrics.StateZeroFilled:
			item.Outcome, item.Detail = log.OutcomeZeroFilled, "zero-filled"
		default:
			item.Outcome, item.Detail = log.OutcomeSkipped, "clone failed"
		}
		console.LogItem(ctx, item)
	}
}
