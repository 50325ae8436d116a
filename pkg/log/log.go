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

package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	itemIndent   = 4  // spaces to indent item entries
	nameWidth    = 40 // Base width for item name
	kindWidth    = 12 // Width for item kind
	outcomeWidth = 12 // Width for outcome text
)

// 🎯 Outcome is how a single item ended
type Outcome int

const (
	OutcomeUnknown    Outcome = iota
	OutcomeDone               // counted or generated
	OutcomeZeroFilled         // reached but recorded with zeros
	OutcomeSkipped            // skipped or dropped
)

// String returns a string representation of Outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeZeroFilled:
		return "zero-filled"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// 📄 Item represents one repository or sample for logging
type Item struct {
	Name    string  // Repository or sample id
	Kind    string  // repository / sample
	Outcome Outcome // How the item ended
	Detail  string  // Short status text
}

// 📦 Batch represents a run over many items
type Batch struct {
	Name   string // generate / metrics
	Target string // provider and model, or repository source
	Items  int    // Number of items requested
}

// 📊 Tally counts item outcomes of a batch
type Tally struct {
	Done       int
	ZeroFilled int
	Skipped    int
}

// Total returns the number of items logged.
func (t Tally) Total() int {
	return t.Done + t.ZeroFilled + t.Skipped
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
	current *Batch
	tally   Tally
}

// 🏭 New creates a new logger writing human lines to console and structured
// events to zlog
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatItem formats an item for display
func (l *Logger) formatItem(item Item) string {
	var symbol rune
	var symbolColor color.Attribute
	switch item.Outcome {
	case OutcomeDone:
		symbol = '✓'
		symbolColor = color.FgGreen
	case OutcomeZeroFilled:
		symbol = '⟳'
		symbolColor = color.FgBlue
	case OutcomeSkipped:
		symbol = '✗'
		symbolColor = color.FgRed
	default:
		symbol = '•'
		symbolColor = color.FgCyan
	}

	return fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", itemIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, item.Name),
		color.New(color.FgCyan).Sprint(fmt.Sprintf("%-*s", kindWidth, item.Kind)),
		fmt.Sprintf("%-*s", outcomeWidth, item.Detail))
}

// 📝 LogItem logs the outcome of one item
func (l *Logger) LogItem(ctx context.Context, item Item) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch item.Outcome {
	case OutcomeDone:
		l.tally.Done++
	case OutcomeZeroFilled:
		l.tally.ZeroFilled++
	case OutcomeSkipped:
		l.tally.Skipped++
	}

	fmt.Fprintln(l.console, l.formatItem(item))

	l.zlog.Info().
		Str("item", item.Name).
		Str("kind", item.Kind).
		Stringer("outcome", item.Outcome).
		Str("detail", item.Detail).
		Msg("item")
}

// 📝 StartBatch starts a new batch and resets the tally
func (l *Logger) StartBatch(ctx context.Context, b Batch) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.current = &b
	l.tally = Tally{}

	fmt.Fprintf(l.console, "[%s %s]\n",
		b.Name,
		color.New(color.FgCyan).Sprint(b.Target))

	fmt.Fprintf(l.console, "%s %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(b.Name),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprintf("%d items", b.Items))

	l.zlog.Info().
		Str("batch", b.Name).
		Str("target", b.Target).
		Int("items", b.Items).
		Msg("starting batch")
}

// 📝 EndBatch ends the current batch and returns its tally
func (l *Logger) EndBatch(ctx context.Context) Tally {
	l.mu.Lock()
	defer l.mu.Unlock()

	tally := l.tally
	if l.current == nil {
		return tally
	}

	l.zlog.Info().
		Str("batch", l.current.Name).
		Int("done", tally.Done).
		Int("zero_filled", tally.ZeroFilled).
		Int("skipped", tally.Skipped).
		Msg("batch complete")

	l.current = nil
	l.tally = Tally{}
	return tally
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("skelbench")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
