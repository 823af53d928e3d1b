// Package mysql connects to a MySQL server. The walkthrough targets the
// embedded engine, but the connector contract is dialect neutral and this
// package provides the same reflection surface from information_schema.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/dkozlov/tableprimer/schema"
)

type Connector struct {
	db *sqlx.DB
}

func New(connectionString string) (*Connector, error) {
	_, err := mysql.ParseDSN(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	db, err := sqlx.Open("mysql", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
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
	query := fmt.Sprintf("SELECT * FROM `%s` LIMIT %d", table, limit)
	return c.Query(ctx, query)
}

func (c *Connector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := c.Query(ctx, `
		SELECT table_name AS table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		AND table_schema = DATABASE()
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}

	var tables []string
	for _, row := range rows {
		tables = append(tables, asString(row["table_name"]))
	}
	return tables, nil
}

// Reflect builds a descriptor from information_schema.columns. COLUMN_KEY
// marks primary-key membership and EXTRA carries the auto_increment flag.
func (c *Connector) Reflect(ctx context.Context, table string) (*schema.Table, error) {
	tx, err := c.db.BeginTxx(ctx, &sql.TxOptions{
		ReadOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Commit()

	columns, err := c.loadColumns(ctx, tx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to load columns for table %s: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	return &schema.Table{Name: table, Columns: columns}, nil
}

func (c *Connector) loadColumns(ctx context.Context, tx *sqlx.Tx, table string) ([]schema.Column, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT column_name, column_type, is_nullable, column_key, extra
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		AND table_name = ?
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var name, columnType, isNullable, columnKey, extra string
		if err := rows.Scan(&name, &columnType, &isNullable, &columnKey, &extra); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, schema.Column{
			Name:          name,
			Type:          columnType,
			Nullable:      strings.EqualFold(isNullable, "YES"),
			PrimaryKey:    columnKey == "PRI",
			Autoincrement: strings.Contains(extra, "auto_increment"),
		})
	}

	return columns, rows.Err()
}

func (c *Connector) DescribeTable(ctx context.Context, table string) (*schema.TableDescription, error) {
	reflected, err := c.Reflect(ctx, table)
	if err != nil {
		return nil, err
	}

	var rowCount int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM `%s`", table)
	if err := c.db.GetContext(ctx, &rowCount, countQuery); err != nil {
		return nil, fmt.Errorf("failed to get row count: %w", err)
	}

	indexes, err := c.loadIndexes(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get indexes: %w", err)
	}

	sampleData, err := c.Sample(ctx, table, 5)
	if err != nil {
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

func (c *Connector) loadIndexes(ctx context.Context, table string) ([]schema.Index, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT index_name, column_name, non_unique
		FROM information_schema.statistics
		WHERE table_schema = DATABASE()
		AND table_name = ?
		AND index_name != 'PRIMARY'
		ORDER BY index_name, seq_in_index`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := make(map[string]*schema.Index)
	var order []string
	for rows.Next() {
		var indexName, columnName string
		var nonUnique int
		if err := rows.Scan(&indexName, &columnName, &nonUnique); err != nil {
			return nil, err
		}
		idx, ok := byName[indexName]
		if !ok {
			idx = &schema.Index{Name: indexName, Unique: nonUnique == 0}
			byName[indexName] = idx
			order = append(order, indexName)
		}
		idx.Columns = append(idx.Columns, columnName)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	indexes := make([]schema.Index, 0, len(order))
	for _, name := range order {
		indexes = append(indexes, *byName[name])
	}
	return indexes, nil
}

func (c *Connector) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}
