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
	"io"

	"github.com/pterm/pterm"
	"gitlab.com/tozd/go/errors"
)

// 🎯 Operation is one batch job
type Operation interface {
	Name() string
	Execute(ctx context.Context) error
}

// 📊 Summary is the end-of-run table of an operation
type Summary struct {
	Title string
	Rows  [][2]string
}

// Add appends a metric row.
func (s *Summary) Add(name, value string) {
	s.Rows = append(s.Rows, [2]string{name, value})
}

// Value returns the value of the named row.
func (s Summary) Value(name string) (string, bool) {
	for _, r := range s.Rows {
		if r[0] == name {
			return r[1], true
		}
	}
	return "", false
}

// 🖨️ Render prints the summary as a boxed table. A nil w prints to stdout.
func (s Summary) Render(w io.Writer) error {
	data := pterm.TableData{{s.Title, ""}}
	for _, r := range s.Rows {
		data = append(data, []string{r[0], r[1]})
	}

	printer := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data)
	if w != nil {
		printer = printer.WithWriter(w)
	}
	if err := printer.Render(); err != nil {
		return errors.Errorf("rendering summary: %w", err)
	}
	return nil
}
