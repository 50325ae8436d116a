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
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.TestWriter{T: t}).WithContext(context.Background())
}

func sampleTable() *Table {
	return &Table{
		Columns: []string{"id", "generated_code"},
		Rows: [][]string{
			{"1", "def f():\n    return \"x, y\""},
			{"2", "class A: pass"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{name: "empty_defaults_to_csv", input: "", want: FormatCSV},
		{name: "csv_extension", input: ".csv", want: FormatCSV},
		{name: "json_is_jsonl", input: "json", want: FormatJSONL},
		{name: "jsonl_upper", input: ".JSONL", want: FormatJSONL},
		{name: "db_is_sqlite", input: ".db", want: FormatSQLite},
		{name: "sqlite", input: "sqlite", want: FormatSQLite},
		{name: "unknown", input: ".parquet", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				require.Error(t, err, "parse should fail")
				assert.True(t, errors.Is(err, ErrUnknownFormat), "error should wrap ErrUnknownFormat")
				return
			}
			require.NoError(t, err, "parse should succeed")
			assert.Equal(t, tt.want, got, "format should match")
		})
	}
}

func TestTable_Append(t *testing.T) {
	tbl := New("a", "b")
	require.NoError(t, tbl.Append("1", "2"), "matching row should append")

	err := tbl.Append("only-one")
	require.Error(t, err, "short row should fail")
	assert.True(t, errors.Is(err, ErrRowWidth), "error should wrap ErrRowWidth")
	assert.Len(t, tbl.Rows, 1, "failed append should not add a row")
	assert.Equal(t, 1, tbl.Index("b"))
	assert.Equal(t, -1, tbl.Index("c"))
}

func TestWrite_CSVRoundTrip(t *testing.T) {
	ctx := testContext(t)
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.csv")

	require.NoError(t, Write(ctx, path, sampleTable()), "write should succeed")

	got, err := ReadCSV(path)
	require.NoError(t, err, "read should succeed")
	assert.Equal(t, sampleTable(), got, "table should survive quoting and newlines")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files should remain")
}

func TestWrite_HeaderOnly(t *testing.T) {
	ctx := testContext(t)
	path := filepath.Join(t.TempDir(), "empty.csv")

	require.NoError(t, Write(ctx, path, New("id", "generated_code")), "write should succeed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,generated_code\n", string(data), "only the header should be written")
}

func TestWrite_JSONL(t *testing.T) {
	ctx := testContext(t)
	path := filepath.Join(t.TempDir(), "out.jsonl")

	require.NoError(t, Write(ctx, path, sampleTable()), "write should succeed")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var objs []map[string]string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var obj map[string]string
		require.NoError(t, json.Unmarshal(sc.Bytes(), &obj), "each line should be a json object")
		objs = append(objs, obj)
	}
	require.NoError(t, sc.Err())

	require.Len(t, objs, 2)
	assert.Equal(t, "1", objs[0]["id"])
	assert.Equal(t, "class A: pass", objs[1]["generated_code"])
}

func TestWrite_SQLite(t *testing.T) {
	ctx := testContext(t)
	path := filepath.Join(t.TempDir(), "out.sqlite")

	require.NoError(t, Write(ctx, path, sampleTable()), "write should succeed")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT "id", "generated_code" FROM results ORDER BY rowid`)
	require.NoError(t, err, "results table should exist")
	defer rows.Close()

	var got [][]string
	for rows.Next() {
		var id, code string
		require.NoError(t, rows.Scan(&id, &code))
		got = append(got, []string{id, code})
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, sampleTable().Rows, got, "rows should be stored in order")
}

func TestWrite_Errors(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()

	t.Run("unknown_extension", func(t *testing.T) {
		err := Write(ctx, filepath.Join(dir, "out.xlsx"), sampleTable())
		assert.True(t, errors.Is(err, ErrUnknownFormat), "error should wrap ErrUnknownFormat")
	})

	t.Run("ragged_rows_write_nothing", func(t *testing.T) {
		path := filepath.Join(dir, "ragged.csv")
		err := Write(ctx, path, &Table{Columns: []string{"a", "b"}, Rows: [][]string{{"1"}}})
		assert.True(t, errors.Is(err, ErrRowWidth), "error should wrap ErrRowWidth")
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr), "no file should be written")
	})
}

func TestDecodeCSV(t *testing.T) {
	t.Run("empty_input", func(t *testing.T) {
		got, err := DecodeCSV(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, got.Columns)
	})

	t.Run("ragged_row", func(t *testing.T) {
		_, err := DecodeCSV(strings.NewReader("a,b\n1\n"))
		require.Error(t, err, "ragged csv should fail")
	})
}
