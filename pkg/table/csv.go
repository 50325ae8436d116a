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

package table

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"gitlab.com/tozd/go/errors"
)

type csvWriter struct{}

func (csvWriter) WriteTable(ctx context.Context, path string, t *Table) error {
	return writeAtomic(path, func(tmpPath string) error {
		f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return errors.Errorf("opening temp file: %w", err)
		}
		defer f.Close()

		w := csv.NewWriter(f)
		if err := w.Write(t.Columns); err != nil {
			return errors.Errorf("writing header: %w", err)
		}
		if err := w.WriteAll(t.Rows); err != nil {
			return errors.Errorf("writing rows: %w", err)
		}

		if err := f.Sync(); err != nil {
			return errors.Errorf("syncing temp file: %w", err)
		}
		return f.Close()
	})
}

// 📖 ReadCSV loads a CSV file whose first record is the header. Every row must
// match the header width.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return DecodeCSV(f)
}

// DecodeCSV reads a table from r.
func DecodeCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, errors.Errorf("reading header: %w", err)
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Errorf("reading rows: %w", err)
	}

	return &Table{Columns: header, Rows: rows}, nil
}
