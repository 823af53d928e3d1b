package migrate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dkozlov/tableprimer/databases/sqlite"
	"github.com/dkozlov/tableprimer/schema"
)

func newTestDB(t *testing.T) *sqlite.Connector {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sourceUsers() *schema.Table {
	return schema.NewTable("users",
		schema.Column{Name: "id", Type: "INTEGER", PrimaryKey: true},
		schema.Column{Name: "full_name", Type: "NVARCHAR(100)", Nullable: true},
	)
}

func targetUsers() *schema.Table {
	return schema.NewTable("users",
		schema.Column{Name: "id", Type: "INTEGER", PrimaryKey: true},
		schema.Column{Name: "first_name", Type: "NVARCHAR(100)"},
		schema.Column{Name: "last_name", Type: "NVARCHAR(100)"},
	)
}

func splitFullName(row map[string]any) (map[string]any, error) {
	full, _ := row["full_name"].(string)
	fields := strings.Fields(full)
	if len(fields) < 2 {
		return nil, fmt.Errorf("full name %q has no separator", full)
	}
	return map[string]any{
		"id":         row["id"],
		"first_name": fields[0],
		"last_name":  strings.Join(fields[1:], " "),
	}, nil
}

func seedUsers(t *testing.T, db *sqlite.Connector, names ...string) *schema.Table {
	t.Helper()
	ctx := context.Background()
	users := sourceUsers()
	if err := db.Exec(ctx, users.CreateSQL()); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	var args []any
	for i, name := range names {
		args = append(args, int64(i+1), name)
	}
	if err := db.Exec(ctx, users.InsertSQL(nil, len(names)), args...); err != nil {
		t.Fatalf("failed to insert rows: %v", err)
	}
	return users
}

func TestRunPreservesRowsAndKeys(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, "John Doe", "Mary Ann Cotton")
	meta := schema.NewMetadata()
	ctx := context.Background()

	plan := &Plan{
		Source:    users,
		Target:    targetUsers(),
		Transform: splitFullName,
		Logger:    quietLogger(),
	}
	result, err := plan.Run(ctx, db, meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Copied != 2 || result.Skipped != 0 {
		t.Errorf("got copied=%d skipped=%d, want 2/0", result.Copied, result.Skipped)
	}

	// Every source primary key survives with the transform applied.
	rows, err := db.Query(ctx, result.Table.SelectSQL())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []struct {
		id          int64
		first, last string
	}{
		{1, "John", "Doe"},
		{2, "Mary", "Ann Cotton"},
	}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rows), len(want))
	}
	for i, w := range want {
		row := rows[i]
		if row["id"] != w.id || row["first_name"] != w.first || row["last_name"] != w.last {
			t.Errorf("row %d: got (%v, %v, %v), want (%d, %q, %q)",
				i, row["id"], row["first_name"], row["last_name"], w.id, w.first, w.last)
		}
	}
}

func TestRunRenamesIntoOriginalName(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, "John Doe")
	meta := schema.NewMetadata()
	ctx := context.Background()

	plan := &Plan{
		Source:    users,
		Target:    targetUsers(),
		Transform: splitFullName,
		Logger:    quietLogger(),
	}
	if _, err := plan.Run(ctx, db, meta); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The original name now carries the new shape; the temporary name is
	// gone.
	tables, err := db.ListTables(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tables) != 1 || tables[0] != "users" {
		t.Errorf("got tables %v, want [users]", tables)
	}

	reflected, err := db.Reflect(ctx, "users")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflected.SameShape(targetUsers()) {
		t.Errorf("users does not have the target shape: %+v", reflected)
	}
}

func TestRunRefreshesMetadata(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, "John Doe")
	meta := schema.NewMetadata()
	if err := meta.Add(users); err != nil {
		t.Fatal(err)
	}

	plan := &Plan{
		Source:    users,
		Target:    targetUsers(),
		Transform: splitFullName,
		Logger:    quietLogger(),
	}
	result, err := plan.Run(context.Background(), db, meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, ok := meta.Table("users")
	if !ok {
		t.Fatal("expected users to stay registered")
	}
	if stored == users {
		t.Error("registry still holds the stale descriptor")
	}
	if stored != result.Table {
		t.Error("registry entry and result descriptor differ")
	}
	if _, ok := stored.Column("first_name"); !ok {
		t.Errorf("refreshed descriptor misses first_name: %+v", stored)
	}
}

// The stale pre-migration descriptor addresses the table purely by name, so
// the engine resolves it to whatever lives under that name now. Sampling by
// the remembered name exposes the new shape's data; selecting the
// remembered columns fails because full_name no longer exists.
func TestStaleDescriptorAfterCutover(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, "John Doe")
	meta := schema.NewMetadata()
	ctx := context.Background()

	plan := &Plan{
		Source:    users,
		Target:    targetUsers(),
		Transform: splitFullName,
		Logger:    quietLogger(),
	}
	if _, err := plan.Run(ctx, db, meta); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := db.Sample(ctx, users.Name, 10)
	if err != nil {
		t.Fatalf("sampling by the stale name must succeed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if _, ok := rows[0]["first_name"]; !ok {
		t.Errorf("expected the new shape through the stale name, got %v", rows[0])
	}

	if _, err := db.Query(ctx, users.SelectSQL()); err == nil {
		t.Error("selecting the stale column set must fail")
	}
}

func TestRejectBatchAbortsOnMalformedRow(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, "John Doe", "Prince")
	meta := schema.NewMetadata()
	ctx := context.Background()

	plan := &Plan{
		Source:    users,
		Target:    targetUsers(),
		Transform: splitFullName,
		OnBadRow:  RejectBatch,
		Logger:    quietLogger(),
	}
	if _, err := plan.Run(ctx, db, meta); err == nil {
		t.Fatal("expected the malformed row to abort the run")
	}

	// The source table is untouched; the aborted target is still parked
	// under its temporary name.
	rows, err := db.Query(ctx, users.SelectSQL())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("got %d source rows, want 2", len(rows))
	}
}

func TestSkipRowDropsMalformedRows(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, "John Doe", "Prince", "Mary Ann Cotton")
	meta := schema.NewMetadata()
	ctx := context.Background()

	plan := &Plan{
		Source:    users,
		Target:    targetUsers(),
		Transform: splitFullName,
		OnBadRow:  SkipRow,
		Logger:    quietLogger(),
	}
	result, err := plan.Run(ctx, db, meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Copied != 2 || result.Skipped != 1 {
		t.Errorf("got copied=%d skipped=%d, want 2/1", result.Copied, result.Skipped)
	}

	rows, err := db.Query(ctx, result.Table.SelectSQL())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("got %d rows, want 2", len(rows))
	}
	for _, row := range rows {
		if row["id"] == int64(2) {
			t.Errorf("the malformed row leaked into the target: %v", row)
		}
	}
}

func TestPlanValidation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name string
		plan *Plan
	}{
		{
			name: "missing descriptors",
			plan: &Plan{Transform: splitFullName, Logger: quietLogger()},
		},
		{
			name: "missing transform",
			plan: &Plan{Source: sourceUsers(), Target: targetUsers(), Logger: quietLogger()},
		},
		{
			name: "temp name collides with source",
			plan: &Plan{
				Source:    sourceUsers(),
				Target:    targetUsers(),
				TempName:  "users",
				Transform: splitFullName,
				Logger:    quietLogger(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.plan.Run(ctx, db, schema.NewMetadata()); err == nil {
				t.Error("expected validation to fail")
			}
		})
	}
}

func TestRunWithoutMetadataStillReflects(t *testing.T) {
	db := newTestDB(t)
	users := seedUsers(t, db, "John Doe")

	plan := &Plan{
		Source:    users,
		Target:    targetUsers(),
		Transform: splitFullName,
		Logger:    quietLogger(),
	}
	result, err := plan.Run(context.Background(), db, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Table == nil || !result.Table.SameShape(targetUsers()) {
		t.Errorf("expected a reflected descriptor, got %+v", result.Table)
	}
}
