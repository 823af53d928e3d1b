// Package tour is the walkthrough: a fixed sequence of database steps that
// builds tables from descriptors, inserts and reads rows, reshapes a table
// by copy-rename, and reflects live structure back into descriptors. Each
// step prints what it did so the output reads like a notebook.
package tour

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dkozlov/tableprimer/databases"
	"github.com/dkozlov/tableprimer/migrate"
	"github.com/dkozlov/tableprimer/schema"
)

type Tour struct {
	DB   databases.Database
	Meta *schema.Metadata
	Out  io.Writer
	Log  *slog.Logger
}

func New(db databases.Database) *Tour {
	return &Tour{
		DB:   db,
		Meta: schema.NewMetadata(),
		Out:  os.Stdout,
		Log:  slog.Default(),
	}
}

// Run executes every step in order and stops on the first error.
func (t *Tour) Run(ctx context.Context) error {
	steps := []struct {
		title string
		fn    func(context.Context) error
	}{
		{"Hello, SQL", t.HelloSQL},
		{"The Coords table", t.CoordsBasics},
		{"The playlists table", t.Playlists},
		{"Reshaping users by copy-rename", t.UsersMigration},
		{"Reflecting table structure", t.ReflectionDemo},
		{"The stale descriptor pitfall", t.StaleDescriptorDemo},
	}

	for i, step := range steps {
		fmt.Fprintf(t.Out, "\n== Step %d: %s ==\n", i+1, step.title)
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("step %q: %w", step.title, err)
		}
	}
	fmt.Fprintln(t.Out, "\nSo long!")
	return nil
}

// HelloSQL issues a literal SELECT with no table at all. Nothing is written,
// so the read-only transaction it runs in changes nothing when it ends.
func (t *Tour) HelloSQL(ctx context.Context) error {
	rows, err := t.DB.Query(ctx, "SELECT 'Hello, SQL!' AS greeting")
	if err != nil {
		return err
	}
	for _, row := range rows {
		fmt.Fprintf(t.Out, "greeting = %v\n", row["greeting"])
	}
	return nil
}

// CoordsBasics creates a two-float-column table from a descriptor, inserts
// five rows in one multi-row statement plus one more in its own transaction,
// and reads everything back in insertion order.
func (t *Tour) CoordsBasics(ctx context.Context) error {
	coords := schema.NewTable("Coords",
		schema.Column{Name: "x", Type: "FLOAT", Nullable: true},
		schema.Column{Name: "y", Type: "FLOAT", Nullable: true},
	)
	if err := t.Meta.Add(coords); err != nil {
		return err
	}

	if err := t.DB.Exec(ctx, coords.CreateSQL()); err != nil {
		return err
	}
	t.Log.Info("created table", "table", coords.Name)

	// One INSERT, five VALUES groups.
	points := [][]any{
		{0.0, 0.0},
		{1.2, 2.1},
		{-2.1, 4.2},
		{-5.0, -9.0},
		{9.9, -13.2},
	}
	var args []any
	for _, p := range points {
		args = append(args, p...)
	}
	if err := t.DB.Exec(ctx, coords.InsertSQL(nil, len(points)), args...); err != nil {
		return err
	}

	// One more row in its own transaction.
	if err := t.DB.Exec(ctx, coords.InsertSQL(nil, 1), 100.0, 200.0); err != nil {
		return err
	}

	rows, err := t.DB.Query(ctx, coords.SelectSQL())
	if err != nil {
		return err
	}
	for nth, row := range rows {
		fmt.Fprintf(t.Out, "Row%d: (x: %v, y: %v)\n", nth+1, row["x"], row["y"])
	}
	return nil
}

// Playlists builds the classic integer-primary-key table. The id column is
// not inserted: the engine assigns it.
func (t *Tour) Playlists(ctx context.Context) error {
	playlists := schema.NewTable("playlists",
		schema.Column{Name: "id", Type: "INTEGER", PrimaryKey: true},
		schema.Column{Name: "name", Type: "NVARCHAR(120)", Nullable: true},
	)
	if err := t.Meta.Add(playlists); err != nil {
		return err
	}

	if err := t.DB.Exec(ctx, playlists.CreateSQL()); err != nil {
		return err
	}

	names := []any{"SQL Rocks!", "SQLite as well"}
	if err := t.DB.Exec(ctx, playlists.InsertSQL([]string{"name"}, len(names)), names...); err != nil {
		return err
	}

	rows, err := t.DB.Query(ctx, playlists.SelectSQL())
	if err != nil {
		return err
	}
	for _, row := range rows {
		fmt.Fprintf(t.Out, "Row = (%v, %v)\n", row["id"], row["name"])
	}
	return nil
}

// UsersMigration reshapes users(id, full_name) into users(id, first_name,
// last_name) with the copy-rename procedure, splitting full_name on
// whitespace. Rows whose name has no separator are skipped with a warning.
func (t *Tour) UsersMigration(ctx context.Context) error {
	users := schema.NewTable("users",
		schema.Column{Name: "id", Type: "INTEGER", PrimaryKey: true},
		schema.Column{Name: "full_name", Type: "NVARCHAR(100)", Nullable: true},
	)
	if err := t.Meta.Add(users); err != nil {
		return err
	}

	if err := t.DB.Exec(ctx, users.CreateSQL()); err != nil {
		return err
	}
	seed := []any{
		int64(1), "John Doe",
		int64(2), "Mary Ann Cotton",
		int64(3), "Prince",
	}
	if err := t.DB.Exec(ctx, users.InsertSQL(nil, 3), seed...); err != nil {
		return err
	}

	target := schema.NewTable("users",
		schema.Column{Name: "id", Type: "INTEGER", PrimaryKey: true},
		schema.Column{Name: "first_name", Type: "NVARCHAR(100)"},
		schema.Column{Name: "last_name", Type: "NVARCHAR(100)"},
	)

	plan := &migrate.Plan{
		Source:    users,
		Target:    target,
		Transform: SplitFullName,
		OnBadRow:  migrate.SkipRow,
		Logger:    t.Log,
	}
	result, err := plan.Run(ctx, t.DB, t.Meta)
	if err != nil {
		return err
	}
	fmt.Fprintf(t.Out, "migrated %d rows, skipped %d\n", result.Copied, result.Skipped)

	rows, err := t.DB.Query(ctx, result.Table.SelectSQL())
	if err != nil {
		return err
	}
	for _, row := range rows {
		fmt.Fprintf(t.Out, "User = (%v, %v, %v)\n",
			row["id"], row["first_name"], row["last_name"])
	}
	return nil
}

// SplitFullName is the migration transform: it carries the id over and
// splits full_name on whitespace into a first name and the rest. A name
// with no separator cannot produce both columns and is reported as an
// error for the plan's bad-row policy to handle.
func SplitFullName(row map[string]any) (map[string]any, error) {
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

// ReflectionDemo reads the users table's structure back from the engine
// catalog, twice, and shows that back-to-back snapshots agree.
func (t *Tour) ReflectionDemo(ctx context.Context) error {
	first, err := t.DB.Reflect(ctx, "users")
	if err != nil {
		return err
	}
	second, err := t.DB.Reflect(ctx, "users")
	if err != nil {
		return err
	}

	for _, col := range first.Columns {
		fmt.Fprintf(t.Out, "users.%s %s nullable=%v pk=%v\n",
			col.Name, col.Type, col.Nullable, col.PrimaryKey)
	}
	fmt.Fprintf(t.Out, "two reflections agree: %v\n", first.SameShape(second))
	return nil
}

// StaleDescriptorDemo renames a table behind the registry's back. No error
// is raised at rename time; the descriptor just keeps pointing at a name
// that now resolves to nothing, and the next query through it fails. The
// registry entry has to be discarded and re-reflected by hand.
func (t *Tour) StaleDescriptorDemo(ctx context.Context) error {
	songs := schema.NewTable("songs",
		schema.Column{Name: "id", Type: "INTEGER", PrimaryKey: true},
		schema.Column{Name: "title", Type: "NVARCHAR(120)", Nullable: true},
	)
	if err := t.Meta.Add(songs); err != nil {
		return err
	}
	if err := t.DB.Exec(ctx, songs.CreateSQL()); err != nil {
		return err
	}
	if err := t.DB.Exec(ctx, songs.InsertSQL([]string{"title"}, 1), "Anthem"); err != nil {
		return err
	}

	// DDL behind the registry's back: nobody told the descriptor.
	if err := t.DB.Exec(ctx, songs.RenameSQL("tracks")); err != nil {
		return err
	}

	if _, err := t.DB.Query(ctx, songs.SelectSQL()); err != nil {
		fmt.Fprintf(t.Out, "stale descriptor query failed as expected: %v\n", err)
	} else {
		fmt.Fprintln(t.Out, "stale descriptor query unexpectedly succeeded")
	}

	// Refresh under the new name; the old entry must go explicitly.
	t.Meta.Remove("songs")
	fresh, err := t.Meta.Refresh(ctx, t.DB, "tracks")
	if err != nil {
		return err
	}
	fmt.Fprintf(t.Out, "refreshed descriptor: %s(%s)\n",
		fresh.Name, strings.Join(fresh.ColumnNames(), ", "))

	fmt.Fprintf(t.Out, "registry now holds: %s\n", strings.Join(t.Meta.Names(), ", "))
	return nil
}
