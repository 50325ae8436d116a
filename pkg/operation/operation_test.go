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
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/skelbench/pkg/dataset"
	"github.com/walteh/skelbench/pkg/dispatch"
	"github.com/walteh/skelbench/pkg/linecount"
	"github.com/walteh/skelbench/pkg/log"
	"github.com/walteh/skelbench/pkg/provider"
	"github.com/walteh/skelbench/pkg/table"
	"gitlab.com/tozd/go/errors"
)

// 🔧 MockOperation is a mock implementation of Operation
type MockOperation struct {
	mock.Mock
}

func (m *MockOperation) Name() string {
	return "mock"
}

func (m *MockOperation) Execute(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// 🔧 MockDispatcher is a mock implementation of Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, req dispatch.Request) ([]dispatch.Result, error) {
	result := m.Called(ctx, req)
	results, _ := result.Get(0).([]dispatch.Result)
	return results, result.Error(1)
}

func (m *MockDispatcher) OutputPath(req dispatch.Request) string {
	return m.Called(req).String(0)
}

// 🔧 MockCloner is a mock implementation of remote.Cloner
type MockCloner struct {
	mock.Mock
}

func (m *MockCloner) Clone(ctx context.Context, repoRef string, token string, destDir string) bool {
	return m.Called(ctx, repoRef, token, destDir).Bool(0)
}

// 🔧 MockCounter is a mock implementation of linecount.Counter
type MockCounter struct {
	mock.Mock
}

func (m *MockCounter) CountLines(ctx context.Context, dir string) (linecount.Counts, error) {
	result := m.Called(ctx, dir)
	return result.Get(0).(linecount.Counts), result.Error(1)
}

func testContext(t *testing.T) context.Context {
	ctx := zerolog.New(zerolog.TestWriter{T: t}).WithContext(context.Background())
	return log.NewContext(ctx, log.New(io.Discard, zerolog.Nop()))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func ptr(s string) *string {
	return &s
}

func noSleep(_ context.Context, _ time.Duration) error {
	return nil
}

func TestRunner_Run(t *testing.T) {
	batchErr := provider.NewBatchError("openai", errors.New("unauthorized"))

	tests := []struct {
		name      string
		retries   int
		results   []error
		wantErr   bool
		wantCalls int
		wantWaits []time.Duration
	}{
		{
			name:      "success_first_try",
			retries:   2,
			results:   []error{nil},
			wantCalls: 1,
		},
		{
			name:      "batch_error_then_success",
			retries:   2,
			results:   []error{batchErr, batchErr, nil},
			wantCalls: 3,
			wantWaits: []time.Duration{time.Second, 2 * time.Second},
		},
		{
			name:      "batch_error_exhausts_retries",
			retries:   1,
			results:   []error{batchErr, batchErr},
			wantErr:   true,
			wantCalls: 2,
			wantWaits: []time.Duration{time.Second},
		},
		{
			name:      "other_error_not_retried",
			retries:   3,
			results:   []error{errors.New("bad config")},
			wantErr:   true,
			wantCalls: 1,
		},
		{
			name:      "no_retries",
			retries:   0,
			results:   []error{batchErr},
			wantErr:   true,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			op := &MockOperation{}
			for _, res := range tt.results {
				op.On("Execute", mock.Anything).Return(res).Once()
			}

			var waits []time.Duration
			r := NewRunner(tt.retries, time.Second)
			r.sleep = func(_ context.Context, d time.Duration) error {
				waits = append(waits, d)
				return nil
			}

			err := r.Run(ctx, op)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			op.AssertNumberOfCalls(t, "Execute", tt.wantCalls)
			assert.Equal(t, tt.wantWaits, waits)
		})
	}
}

func TestRunner_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext(t))
	cancel()

	op := &MockOperation{}
	op.On("Execute", mock.Anything).Return(provider.NewBatchError("openai", errors.New("boom"))).Once()

	err := NewRunner(3, time.Hour).Run(ctx, op)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	op.AssertNumberOfCalls(t, "Execute", 1)
}

func TestSummary_Render(t *testing.T) {
	s := Summary{Title: "generation"}
	s.Add("generated", "2")
	s.Add("dropped", "1")

	v, ok := s.Value("dropped")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	_, ok = s.Value("missing")
	assert.False(t, ok)

	buf := &bytes.Buffer{}
	require.NoError(t, s.Render(buf))
	assert.Contains(t, buf.String(), "generation")
	assert.Contains(t, buf.String(), "generated")
	assert.Contains(t, buf.String(), "dropped")
}

const datasetHeader = "id,repository_name,file_path,class_name,human_written_code,class_skeleton,snippet_id\n"

func TestGenerateOperation_Execute(t *testing.T) {
	console := &bytes.Buffer{}
	ctx := log.NewContext(testContext(t), log.New(console, zerolog.Nop()))
	dir := t.TempDir()
	baseline := filepath.Join(dir, "baseline.csv")
	writeFile(t, baseline, datasetHeader+
		"1,r,a.py,A,code,class A:,11\n"+
		"2,r,b.py,B,code,,12\n"+
		"3,r,c.py,C,code,class C:,13\n")

	d := &MockDispatcher{}
	d.On("Dispatch", mock.Anything, mock.MatchedBy(func(req dispatch.Request) bool {
		return len(req.Worklist) == 2 && req.Worklist[0].ID == "1" && req.Worklist[1].ID == "3"
	})).Return([]dispatch.Result{
		{SampleID: "1", Text: ptr("class A:\n    pass")},
		{SampleID: "3", Text: nil},
	}, nil).Once()
	d.On("OutputPath", mock.Anything).Return("out/v1/numpy/openai/gpt/direct.csv")

	summary := &bytes.Buffer{}
	op, err := NewGenerateOperation(GenerateOptions{
		Build:         dataset.BuildOptions{BaselinePath: baseline},
		Request:       dispatch.Request{Provider: "openai", Model: "gpt", Mode: provider.ModeDirect},
		Dispatcher:    d,
		SummaryWriter: summary,
		RunID:         "run-1234",
	})
	require.NoError(t, err)
	assert.Equal(t, "generate", op.Name())

	require.NoError(t, op.Execute(ctx))

	got, ok := op.Summary().Value("generated")
	require.True(t, ok)
	assert.Equal(t, "1", got)
	got, _ = op.Summary().Value("dropped")
	assert.Equal(t, "1", got)
	got, _ = op.Summary().Value("output")
	assert.Equal(t, "out/v1/numpy/openai/gpt/direct.csv", got)
	assert.Contains(t, summary.String(), "generation")
	got, _ = op.Summary().Value("run")
	assert.Equal(t, "run-1234", got)
	assert.Contains(t, console.String(), "built worklist of 2 samples")
	assert.Contains(t, console.String(), "wrote 1 of 2 samples")

	d.AssertExpectations(t)
}

func TestGenerateOperation_RetryReusesWorklist(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	baseline := filepath.Join(dir, "baseline.csv")
	writeFile(t, baseline, datasetHeader+"1,r,a.py,A,code,class A:,11\n")

	d := &MockDispatcher{}
	d.On("Dispatch", mock.Anything, mock.Anything).Return(nil, provider.NewBatchError("openai", errors.New("rate limited"))).Once()
	d.On("Dispatch", mock.Anything, mock.Anything).Return([]dispatch.Result{{SampleID: "1", Text: ptr("x")}}, nil).Once()
	d.On("OutputPath", mock.Anything).Return("out.csv")

	op, err := NewGenerateOperation(GenerateOptions{
		Build:         dataset.BuildOptions{BaselinePath: baseline},
		Request:       dispatch.Request{Provider: "openai", Model: "gpt", Mode: provider.ModeDirect},
		Dispatcher:    d,
		SummaryWriter: io.Discard,
	})
	require.NoError(t, err)

	first := op.Execute(ctx)
	require.Error(t, first)
	assert.ErrorIs(t, first, provider.ErrBatchFailed)

	// the worklist stays cached even if the dataset disappears
	require.NoError(t, os.Remove(baseline))

	r := NewRunner(1, 0)
	r.sleep = noSleep
	require.NoError(t, r.Run(ctx, op))
	d.AssertNumberOfCalls(t, "Dispatch", 2)
}

func TestNewGenerateOperation_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts GenerateOptions
	}{
		{
			name: "missing_dispatcher",
			opts: GenerateOptions{Request: dispatch.Request{Provider: "openai", Model: "gpt"}},
		},
		{
			name: "missing_provider",
			opts: GenerateOptions{Dispatcher: &MockDispatcher{}, Request: dispatch.Request{Model: "gpt"}},
		},
		{
			name: "missing_model",
			opts: GenerateOptions{Dispatcher: &MockDispatcher{}, Request: dispatch.Request{Provider: "openai"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerateOperation(tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestMetricsOperation_Execute(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	source := filepath.Join(dir, "repos.txt")
	writeFile(t, source, "# repos\ngood/repo\nbad/repo\nodd/repo\n")
	output := filepath.Join(dir, "metrics.csv")

	cloner := &MockCloner{}
	cloner.On("Clone", mock.Anything, "good/repo", "tok", mock.Anything).Return(true).Once()
	cloner.On("Clone", mock.Anything, "bad/repo", "tok", mock.Anything).Return(false).Once()
	cloner.On("Clone", mock.Anything, "odd/repo", "tok", mock.Anything).Return(true).Once()

	counter := &MockCounter{}
	counter.On("CountLines", mock.Anything, mock.Anything).Return(linecount.Counts{Blank: 10, Code: 50, Comment: 5}, nil).Once()
	counter.On("CountLines", mock.Anything, mock.Anything).Return(linecount.Counts{}, errors.New("cloc crashed")).Once()

	op, err := NewMetricsOperation(MetricsOptions{
		Source:        source,
		Token:         "tok",
		Cloner:        cloner,
		Counter:       counter,
		TempRoot:      t.TempDir(),
		Output:        output,
		SummaryWriter: io.Discard,
	})
	require.NoError(t, err)
	assert.Equal(t, "metrics", op.Name())

	require.NoError(t, op.Execute(ctx))

	got, err := table.ReadCSV(output)
	require.NoError(t, err)
	assert.Equal(t, []string{"repository", "blank_lines", "code_lines", "comment_lines"}, got.Columns)
	assert.Equal(t, [][]string{
		{"good/repo", "10", "50", "5"},
		{"odd/repo", "0", "0", "0"},
	}, got.Rows)

	_, hasRun := op.Summary().Value("run")
	assert.False(t, hasRun, "no run row without a run id")

	for name, want := range map[string]string{
		"requested":   "3",
		"counted":     "1",
		"zero-filled": "1",
		"skipped":     "1",
		"code lines":  "50",
		"blank lines": "10",
	} {
		v, ok := op.Summary().Value(name)
		require.True(t, ok, "summary row %s", name)
		assert.Equal(t, want, v, "summary row %s", name)
	}

	cloner.AssertExpectations(t)
	counter.AssertExpectations(t)
}

func TestMetricsOperation_CancelWritesPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()

	dir := t.TempDir()
	source := filepath.Join(dir, "repos.txt")
	writeFile(t, source, "a/a\nb/b\n")
	output := filepath.Join(dir, "metrics.csv")

	cloner := &MockCloner{}
	cloner.On("Clone", mock.Anything, "a/a", "", mock.Anything).Return(true).Once()
	counter := &MockCounter{}
	counter.On("CountLines", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		cancel()
	}).Return(linecount.Counts{Code: 7}, nil).Once()

	op, err := NewMetricsOperation(MetricsOptions{
		Source:        source,
		Cloner:        cloner,
		Counter:       counter,
		TempRoot:      t.TempDir(),
		Output:        output,
		SummaryWriter: io.Discard,
	})
	require.NoError(t, err)

	err = op.Execute(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	got, err := table.ReadCSV(output)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a/a", "0", "7", "0"}}, got.Rows)
	cloner.AssertNotCalled(t, "Clone", mock.Anything, "b/b", mock.Anything, mock.Anything)
}

func TestNewMetricsOperation_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts MetricsOptions
	}{
		{name: "missing_source", opts: MetricsOptions{Output: "m.csv"}},
		{name: "missing_output", opts: MetricsOptions{Source: "repos.txt"}},
		{name: "unknown_output_format", opts: MetricsOptions{Source: "repos.txt", Output: "m.xlsx"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMetricsOperation(tt.opts)
			assert.Error(t, err)
		})
	}
}
