package databases

import (
	"context"
	"log/slog"

	"github.com/dkozlov/tableprimer/schema"
)

// WithEcho wraps a Database so every statement is logged before it runs,
// the way an engine opened in echo mode narrates its SQL.
func WithEcho(db Database, log *slog.Logger) Database {
	if log == nil {
		log = slog.Default()
	}
	return &echoDB{next: db, log: log}
}

type echoDB struct {
	next Database
	log  *slog.Logger
}

func (e *echoDB) Ping(ctx context.Context) error {
	return e.next.Ping(ctx)
}

func (e *echoDB) Exec(ctx context.Context, query string, args ...any) error {
	e.log.Info("exec", "sql", query, "args", len(args))
	return e.next.Exec(ctx, query, args...)
}

func (e *echoDB) ExecBatch(ctx context.Context, query string, argSets [][]any) error {
	e.log.Info("exec batch", "sql", query, "rows", len(argSets))
	return e.next.ExecBatch(ctx, query, argSets)
}

func (e *echoDB) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	e.log.Info("query", "sql", query, "args", len(args))
	return e.next.Query(ctx, query, args...)
}

func (e *echoDB) Sample(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	e.log.Info("sample", "table", table, "limit", limit)
	return e.next.Sample(ctx, table, limit)
}

func (e *echoDB) ListTables(ctx context.Context) ([]string, error) {
	return e.next.ListTables(ctx)
}

func (e *echoDB) Reflect(ctx context.Context, table string) (*schema.Table, error) {
	e.log.Info("reflect", "table", table)
	return e.next.Reflect(ctx, table)
}

func (e *echoDB) DescribeTable(ctx context.Context, table string) (*schema.TableDescription, error) {
	e.log.Info("describe", "table", table)
	return e.next.DescribeTable(ctx, table)
}

func (e *echoDB) Close() error {
	return e.next.Close()
}
