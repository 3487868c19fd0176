// Package introspect builds sheetmap schema snapshots from live
// databases. It is the metadata-loading collaborator of the inference
// engine: column shapes are normalized once here, at the loading
// boundary, so the engine never has to re-guess property names or
// dialect-specific type spellings.
package introspect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nao1215/sheetmap"
)

// Dialect selects the catalog queries used to enumerate tables and columns.
type Dialect int

const (
	// DialectSQLite reads sqlite_master and PRAGMA table_info
	DialectSQLite Dialect = iota
	// DialectPostgres reads information_schema
	DialectPostgres
)

// ErrNoTables indicates the database holds no user tables at all; without
// a schema no per-sheet analysis can propose existing-table mappings.
var ErrNoTables = errors.New("introspect: no tables found in database")

// Snapshot loads a read-only view of the database schema. It is intended
// to run once per import session; the engine treats the result as
// immutable for the session's lifetime.
func Snapshot(ctx context.Context, db *sql.DB, dialect Dialect) (sheetmap.SchemaSnapshot, error) {
	var (
		tables []string
		err    error
	)
	switch dialect {
	case DialectPostgres:
		tables, err = postgresTables(ctx, db)
	default:
		tables, err = sqliteTables(ctx, db)
	}
	if err != nil {
		return sheetmap.SchemaSnapshot{}, err
	}
	if len(tables) == 0 {
		return sheetmap.SchemaSnapshot{}, ErrNoTables
	}

	snapshot := sheetmap.SchemaSnapshot{Tables: make(map[string]sheetmap.TableSnapshot, len(tables))}
	for _, table := range tables {
		var columns []sheetmap.ColumnSnapshot
		switch dialect {
		case DialectPostgres:
			columns, err = postgresColumns(ctx, db, table)
		default:
			columns, err = sqliteColumns(ctx, db, table)
		}
		if err != nil {
			return sheetmap.SchemaSnapshot{}, err
		}
		snapshot.Tables[table] = sheetmap.TableSnapshot{Name: table, Columns: columns}
	}
	return snapshot, nil
}

// sqliteTables enumerates user tables from sqlite_master.
func sqliteTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("introspect: failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("introspect: failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// sqliteColumns reads one table's columns via PRAGMA table_info.
func sqliteColumns(ctx context.Context, db *sql.DB, table string) ([]sheetmap.ColumnSnapshot, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return nil, fmt.Errorf("introspect: failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []sheetmap.ColumnSnapshot
	for rows.Next() {
		var (
			cid        int
			name       string
			dataType   string
			notNull    int
			defaultVal sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultVal, &primaryKey); err != nil {
			return nil, fmt.Errorf("introspect: failed to scan column of %s: %w", table, err)
		}
		columns = append(columns, sheetmap.ColumnSnapshot{
			Name:       name,
			DataType:   dataType,
			IsNullable: notNull == 0,
		})
	}
	return columns, rows.Err()
}

// postgresTables enumerates tables in the public schema.
func postgresTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		 ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("introspect: failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("introspect: failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// postgresColumns reads one table's columns from information_schema.
func postgresColumns(ctx context.Context, db *sql.DB, table string) ([]sheetmap.ColumnSnapshot, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT column_name, data_type, is_nullable FROM information_schema.columns
		 WHERE table_schema = 'public' AND table_name = $1
		 ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("introspect: failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []sheetmap.ColumnSnapshot
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("introspect: failed to scan column of %s: %w", table, err)
		}
		columns = append(columns, sheetmap.ColumnSnapshot{
			Name:       name,
			DataType:   dataType,
			IsNullable: nullable == "YES",
		})
	}
	return columns, rows.Err()
}
