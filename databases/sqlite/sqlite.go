// Package sqlite connects to the embedded SQLite engine through the
// mattn/go-sqlite3 driver. This is the dialect the walkthrough runs on.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dkozlov/tableprimer/schema"
)

type Connector struct {
	db *sqlx.DB
}

// New opens a SQLite database. The connection string is a file path or
// ":memory:" for a throwaway in-memory database.
func New(connectionString string) (*Connector, error) {
	db, err := sqlx.Open("sqlite3", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory SQLite database exists per connection: letting the pool
	// grow would hand each caller a different empty database.
	if strings.Contains(connectionString, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	connector := &Connector{db: db}

	if err := connector.Ping(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return connector, nil
}

func (c *Connector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Connector) Exec(ctx context.Context, query string, args ...any) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to execute statement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (c *Connector) ExecBatch(ctx context.Context, query string, argSets [][]any) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, args := range argSets {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute statement for row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (c *Connector) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	tx, err := c.db.BeginTxx(ctx, &sql.TxOptions{
		ReadOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Commit()

	rows, err := tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query db: %w", err)
	}
	defer rows.Close()

	var results []map[string]any
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("unable to scan row: %w", err)
		}
		results = append(results, row)
	}

	return results, rows.Err()
}

func (c *Connector) Sample(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf("SELECT * FROM %q LIMIT %d", table, limit)
	return c.Query(ctx, query)
}

func (c *Connector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := c.Query(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type='table'
		AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}

	var tables []string
	for _, row := range rows {
		if name, ok := row["name"].(string); ok {
			tables = append(tables, name)
		}
	}
	return tables, nil
}

// Reflect builds a descriptor from PRAGMA table_info. SQLite reports the
// declared type, notnull flag, and primary-key ordinal per column; a lone
// INTEGER primary key is a rowid alias and therefore autoincrements.
func (c *Connector) Reflect(ctx context.Context, table string) (*schema.Table, error) {
	tx, err := c.db.BeginTxx(ctx, &sql.TxOptions{
		ReadOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Commit()

	var exists bool
	err = tx.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM sqlite_master
			WHERE type='table' AND name = ?
		)`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to check table existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("table %s not found", table)
	}

	columns, err := c.loadColumns(ctx, tx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to load columns for table %s: %w", table, err)
	}

	return &schema.Table{Name: table, Columns: columns}, nil
}

func (c *Connector) loadColumns(ctx context.Context, tx *sqlx.Tx, table string) ([]schema.Column, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT name, type, "notnull", pk
		FROM pragma_table_info(?)
		ORDER BY cid`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []schema.Column
	pkCount := 0
	for rows.Next() {
		var name, declaredType string
		var notNull, pk int
		if err := rows.Scan(&name, &declaredType, &notNull, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		if pk > 0 {
			pkCount++
		}
		columns = append(columns, schema.Column{
			Name:       name,
			Type:       declaredType,
			Nullable:   notNull == 0 && pk == 0,
			PrimaryKey: pk > 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if pkCount == 1 {
		for i := range columns {
			if columns[i].PrimaryKey && strings.EqualFold(columns[i].Type, "INTEGER") {
				columns[i].Autoincrement = true
			}
		}
	}

	return columns, nil
}

func (c *Connector) DescribeTable(ctx context.Context, table string) (*schema.TableDescription, error) {
	reflected, err := c.Reflect(ctx, table)
	if err != nil {
		return nil, err
	}

	tx, err := c.db.BeginTxx(ctx, &sql.TxOptions{
		ReadOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	var rowCount int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %q", table)
	if err := tx.GetContext(ctx, &rowCount, countQuery); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to get row count: %w", err)
	}

	indexes, err := c.loadIndexes(ctx, tx, table)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to get indexes: %w", err)
	}

	// Release the connection before sampling: an in-memory database has a
	// single connection and Sample opens its own transaction on it.
	tx.Commit()

	sampleData, err := c.Sample(ctx, table, 5)
	if err != nil {
		// Non-critical, continue without sample data
		sampleData = nil
	}

	return &schema.TableDescription{
		Name:        table,
		Columns:     reflected.Columns,
		RowCount:    rowCount,
		SampleData:  sampleData,
		PrimaryKeys: reflected.PrimaryKey(),
		Indexes:     indexes,
	}, nil
}

func (c *Connector) loadIndexes(ctx context.Context, tx *sqlx.Tx, table string) ([]schema.Index, error) {
	indexRows, err := tx.QueryContext(ctx, `
		SELECT name, "unique"
		FROM pragma_index_list(?)
		WHERE origin != 'pk'`, table)
	if err != nil {
		return nil, err
	}
	defer indexRows.Close()

	var indexes []schema.Index
	for indexRows.Next() {
		var indexName string
		var isUnique bool
		if err := indexRows.Scan(&indexName, &isUnique); err != nil {
			return nil, err
		}

		colRows, err := tx.QueryContext(ctx, `
			SELECT name
			FROM pragma_index_info(?)
			ORDER BY seqno`, indexName)
		if err != nil {
			continue
		}

		var indexColumns []string
		for colRows.Next() {
			var colName string
			if err := colRows.Scan(&colName); err != nil {
				continue
			}
			indexColumns = append(indexColumns, colName)
		}
		colRows.Close()

		if len(indexColumns) > 0 {
			indexes = append(indexes, schema.Index{
				Name:    indexName,
				Columns: indexColumns,
				Unique:  isUnique,
			})
		}
	}

	return indexes, indexRows.Err()
}

func (c *Connector) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
