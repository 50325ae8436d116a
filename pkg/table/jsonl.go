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
	"bufio"
	"context"
	"encoding/json"
	"os"

	"gitlab.com/tozd/go/errors"
)

// jsonlWriter writes one JSON object per row, keyed by column name.
type jsonlWriter struct{}

func (jsonlWriter) WriteTable(ctx context.Context, path string, t *Table) error {
	return writeAtomic(path, func(tmpPath string) error {
		f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return errors.Errorf("opening temp file: %w", err)
		}
		defer f.Close()

		bw := bufio.NewWriter(f)
		enc := json.NewEncoder(bw)
		enc.SetEscapeHTML(false)

		for i, row := range t.Rows {
			obj := make(map[string]string, len(t.Columns))
			for j, col := range t.Columns {
				obj[col] = row[j]
			}
			if err := enc.Encode(obj); err != nil {
				return errors.Errorf("encoding row %d: %w", i, err)
			}
		}

		if err := bw.Flush(); err != nil {
			return errors.Errorf("flushing rows: %w", err)
		}
		if err := f.Sync(); err != nil {
			return errors.Errorf("syncing temp file: %w", err)
		}
		return f.Close()
	})
}
