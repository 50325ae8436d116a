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

// Package table reads and writes the flat string tables skelbench exchanges
// with the outside world: datasets in, generations and metrics out.
package table

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

var (
	ErrUnknownFormat = errors.Base("unknown table format")
	ErrRowWidth      = errors.Base("row width does not match columns")
)

// 📊 Table is an ordered set of named columns and string rows
type Table struct {
	Columns []string
	Rows    [][]string
}

// New creates an empty table with the given columns.
func New(columns ...string) *Table {
	return &Table{Columns: columns}
}

// Append adds a row. The row must have one value per column.
func (t *Table) Append(row ...string) error {
	if len(row) != len(t.Columns) {
		return errors.Errorf("got %d values for %d columns: %w", len(row), len(t.Columns), ErrRowWidth)
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (t *Table) validate() error {
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return errors.Errorf("row %d has %d values for %d columns: %w", i, len(row), len(t.Columns), ErrRowWidth)
		}
	}
	return nil
}

// 📝 Format selects the on-disk encoding of a table
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSONL  Format = "jsonl"
	FormatSQLite Format = "sqlite"
)

// ParseFormat accepts a format name or file extension (with or without the dot).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "csv":
		return FormatCSV, nil
	case "jsonl", "json":
		return FormatJSONL, nil
	case "sqlite", "db":
		return FormatSQLite, nil
	default:
		return "", errors.Errorf("%q: %w", s, ErrUnknownFormat)
	}
}

// FormatFromPath derives the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Ext returns the canonical file extension without the dot.
func (f Format) Ext() string {
	return string(f)
}

// 🏗️ Writer persists a table to a file
type Writer interface {
	WriteTable(ctx context.Context, path string, t *Table) error
}

// WriterFor returns the writer for format.
func WriterFor(format Format) (Writer, error) {
	switch format {
	case FormatCSV:
		return csvWriter{}, nil
	case FormatJSONL:
		return jsonlWriter{}, nil
	case FormatSQLite:
		return sqliteWriter{}, nil
	default:
		return nil, errors.Errorf("%q: %w", format, ErrUnknownFormat)
	}
}

// 💾 Write persists t to path atomically, choosing the encoding from the
// extension. Parent directories are created as needed.
func Write(ctx context.Context, path string, t *Table) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	w, err := WriterFor(format)
	if err != nil {
		return err
	}

	if err := t.validate(); err != nil {
		return err
	}

	if err := w.WriteTable(ctx, path, t); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Debug().
		Str("path", path).
		Str("format", string(format)).
		Int("rows", len(t.Rows)).
		Msg("wrote table")
	return nil
}

// writeAtomic calls fill with a temp path next to path, then renames it over
// path. The temp file is removed when fill or the rename fails.
func writeAtomic(path string, fill func(tmpPath string) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Errorf("creating parent directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("closing temp file: %w", err)
	}

	if err := fill(tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("renaming temp file: %w", err)
	}
	return nil
}
