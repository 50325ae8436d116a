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
	"database/sql"
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"
	_ "modernc.org/sqlite"
)

// SQLiteTableName is the table every sqlite output file holds.
const SQLiteTableName = "results"

type sqliteWriter struct{}

func (sqliteWriter) WriteTable(ctx context.Context, path string, t *Table) error {
	return writeAtomic(path, func(tmpPath string) error {
		db, err := sql.Open("sqlite", tmpPath)
		if err != nil {
			return errors.Errorf("opening sqlite database: %w", err)
		}
		defer db.Close()

		if err := insertRows(ctx, db, t); err != nil {
			return err
		}

		return db.Close()
	})
}

func insertRows(ctx context.Context, db *sql.DB, t *Table) error {
	cols := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quoteIdent(c)
		marks[i] = "?"
	}

	create := fmt.Sprintf("CREATE TABLE %s (%s TEXT)", quoteIdent(SQLiteTableName), strings.Join(cols, " TEXT, "))
	if len(cols) == 0 {
		create = fmt.Sprintf("CREATE TABLE %s (_empty TEXT)", quoteIdent(SQLiteTableName))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, create); err != nil {
		return errors.Errorf("creating table: %w", err)
	}

	if len(t.Rows) > 0 {
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdent(SQLiteTableName), strings.Join(cols, ", "), strings.Join(marks, ", ")))
		if err != nil {
			return errors.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for i, row := range t.Rows {
			args := make([]any, len(row))
			for j, v := range row {
				args[j] = v
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return errors.Errorf("inserting row %d: %w", i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Errorf("committing rows: %w", err)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
