// Package databases defines the connection contract every dialect connector
// implements. A Database is the single unit of connectivity the rest of the
// repo talks through: every statement, reflection call, and migration step
// goes over one of these handles.
package databases

import (
	"context"

	"github.com/dkozlov/tableprimer/schema"
)

type Database interface {
	Ping(ctx context.Context) error

	// Exec runs one write statement inside a transaction that commits on
	// success and rolls back on error.
	Exec(ctx context.Context, query string, args ...any) error

	// ExecBatch runs the same statement once per argument set inside a
	// single transaction. Either every set commits or none does.
	ExecBatch(ctx context.Context, query string, argSets [][]any) error

	// Query runs a read-only statement and returns the rows as maps, in the
	// order the engine produced them.
	Query(ctx context.Context, query string, args ...any) ([]map[string]any, error)

	// Sample returns up to limit rows from the table.
	Sample(ctx context.Context, table string, limit int) ([]map[string]any, error)

	// ListTables returns the user table names in the connected database.
	ListTables(ctx context.Context) ([]string, error)

	// Reflect snapshots the named table's current shape from the engine
	// catalog. The returned descriptor is not refreshed afterward.
	Reflect(ctx context.Context, table string) (*schema.Table, error)

	// DescribeTable returns the reflected shape plus row count, sample rows,
	// primary keys, and secondary indexes.
	DescribeTable(ctx context.Context, table string) (*schema.TableDescription, error)

	Close() error
}
