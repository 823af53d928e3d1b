// Package postgres connects to a PostgreSQL server through the pgx stdlib
// adapter and provides reflection from information_schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/dkozlov/tableprimer/schema"
)

type Connector struct {
	db *sqlx.DB
}

func New(connectionString string) (*Connector, error) {
	config, err := pgx.ParseConfig(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	config.PreferSimpleProtocol = true

	db := sqlx.NewDb(stdlib.OpenDB(*config), "pgx")

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
		SELECT table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		AND table_schema = 'public'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}

	var tables []string
	for _, row := range rows {
		if name, ok := row["table_name"].(string); ok {
			tables = append(tables, name)
		}
	}
	return tables, nil
}

// Reflect builds a descriptor from information_schema.columns joined with
// key_column_usage for primary-key membership. Identity and serial default
// columns are reported as autoincrementing.
func (c *Connector) Reflect(ctx context.Context, table string) (*schema.Table, error) {
	tx, err := c.db.BeginTxx(ctx, &sql.TxOptions{
		ReadOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Commit()

	rows, err := tx.QueryContext(ctx, `
		SELECT c.column_name,
		       c.data_type,
		       c.is_nullable,
		       c.is_identity,
		       COALESCE(c.column_default, ''),
		       EXISTS (
		           SELECT 1
		           FROM information_schema.table_constraints tc
		           JOIN information_schema.key_column_usage kcu
		             ON tc.constraint_name = kcu.constraint_name
		            AND tc.table_schema = kcu.table_schema
		           WHERE tc.constraint_type = 'PRIMARY KEY'
		           AND tc.table_name = c.table_name
		           AND kcu.column_name = c.column_name
		       ) AS is_pk
		FROM information_schema.columns c
		WHERE c.table_schema = 'public'
		AND c.table_name = $1
		ORDER BY c.ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var name, dataType, isNullable, isIdentity, columnDefault string
		var isPK bool
		if err := rows.Scan(&name, &dataType, &isNullable, &isIdentity, &columnDefault, &isPK); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, schema.Column{
			Name:          name,
			Type:          dataType,
			Nullable:      strings.EqualFold(isNullable, "YES"),
			PrimaryKey:    isPK,
			Autoincrement: strings.EqualFold(isIdentity, "YES") || strings.HasPrefix(columnDefault, "nextval("),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	return &schema.Table{Name: table, Columns: columns}, nil
}

func (c *Connector) DescribeTable(ctx context.Context, table string) (*schema.TableDescription, error) {
	reflected, err := c.Reflect(ctx, table)
	if err != nil {
		return nil, err
	}

	var rowCount int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %q", table)
	if err := c.db.GetContext(ctx, &rowCount, countQuery); err != nil {
		return nil, fmt.Errorf("failed to get row count: %w", err)
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
	}, nil
}

func (c *Connector) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
