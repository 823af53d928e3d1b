// Package migrate implements schema change by copy: create the new shape
// under a temporary name, copy every row through a transform, drop the old
// table, and rename the new one into its place. SQLite has no reliable
// ALTER COLUMN, so this four-step sequence is how a table is reshaped
// without losing rows.
//
// The sequence is not atomic. Each step runs in its own transaction and any
// engine error is propagated as-is with no compensation: a failure between
// the drop and the rename leaves the database with the old name resolving
// to nothing. Recovering from that is the job of real migration tooling,
// not this package.
package migrate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dkozlov/tableprimer/databases"
	"github.com/dkozlov/tableprimer/schema"
)

// TransformFunc reshapes one source row into a target-shape row, keyed by
// column name. The primary-key value must be carried over by the transform.
// Returning an error marks the row malformed; what happens next is decided
// by the plan's OnBadRow policy.
type TransformFunc func(row map[string]any) (map[string]any, error)

// BadRowPolicy decides what a failed transform does to the copy step.
type BadRowPolicy int

const (
	// RejectBatch aborts the copy step on the first malformed row. The
	// target table is left behind under its temporary name; the source is
	// untouched.
	RejectBatch BadRowPolicy = iota

	// SkipRow drops malformed rows from the copy, counts them, and logs a
	// warning per row.
	SkipRow
)

// Plan describes one copy-rename migration.
type Plan struct {
	// Source is the descriptor of the live table to reshape. Its rows are
	// read in storage order.
	Source *schema.Table

	// Target is the new shape. Its Name is the final name the table will
	// hold after the cutover; in the usual reshape-in-place case it equals
	// Source.Name.
	Target *schema.Table

	// TempName is the collision-free name the target is created under while
	// the source is still live. Defaults to Target.Name + "_new".
	TempName string

	Transform TransformFunc
	OnBadRow  BadRowPolicy

	// Logger narrates step completion. Defaults to slog.Default().
	Logger *slog.Logger
}

// Result reports what a completed migration did.
type Result struct {
	Copied  int
	Skipped int

	// Table is the fresh descriptor reflected from the final table after
	// the cutover, already registered in the metadata the plan ran with.
	Table *schema.Table
}

func (p *Plan) validate() error {
	if p.Source == nil || p.Target == nil {
		return fmt.Errorf("plan needs both source and target descriptors")
	}
	if p.Transform == nil {
		return fmt.Errorf("plan needs a transform function")
	}
	if p.TempName == "" {
		p.TempName = p.Target.Name + "_new"
	}
	if p.TempName == p.Source.Name {
		return fmt.Errorf("temporary name %s collides with the source table", p.TempName)
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return nil
}

// Run executes the four steps in order: create temp, copy rows, drop source
// and rename temp into place, refresh the descriptor in meta. The first
// failing step stops the run and its error is returned unfiltered beyond
// the step-name wrap.
func (p *Plan) Run(ctx context.Context, db databases.Database, meta *schema.Metadata) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	if err := p.createTarget(ctx, db); err != nil {
		return nil, fmt.Errorf("create step: %w", err)
	}

	result, err := p.copyRows(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("copy step: %w", err)
	}

	if err := p.cutOver(ctx, db); err != nil {
		return nil, fmt.Errorf("cutover step: %w", err)
	}

	table, err := p.refresh(ctx, db, meta)
	if err != nil {
		return nil, fmt.Errorf("refresh step: %w", err)
	}
	result.Table = table

	p.Logger.Info("migration complete",
		"table", p.Target.Name,
		"copied", result.Copied,
		"skipped", result.Skipped)
	return result, nil
}

// createTarget materializes the target shape under the temporary name.
func (p *Plan) createTarget(ctx context.Context, db databases.Database) error {
	temp := &schema.Table{Name: p.TempName, Columns: p.Target.Columns}
	if err := db.Exec(ctx, temp.CreateSQL()); err != nil {
		return err
	}
	p.Logger.Info("created target table", "table", p.TempName)
	return nil
}

// copyRows reads every source row, transforms it, and inserts the results
// into the temp table in one transaction.
func (p *Plan) copyRows(ctx context.Context, db databases.Database) (*Result, error) {
	rows, err := db.Query(ctx, p.Source.SelectSQL())
	if err != nil {
		return nil, fmt.Errorf("failed to read source rows: %w", err)
	}

	columns := p.Target.ColumnNames()
	temp := &schema.Table{Name: p.TempName, Columns: p.Target.Columns}
	insert := temp.InsertSQL(columns, 1)

	result := &Result{}
	var argSets [][]any
	for i, row := range rows {
		transformed, err := p.Transform(row)
		if err != nil {
			if p.OnBadRow == SkipRow {
				result.Skipped++
				p.Logger.Warn("skipping malformed row", "row", i, "error", err)
				continue
			}
			return nil, fmt.Errorf("transform failed for row %d: %w", i, err)
		}

		args := make([]any, len(columns))
		for j, col := range columns {
			v, ok := transformed[col]
			if !ok {
				return nil, fmt.Errorf("transform for row %d did not produce column %s", i, col)
			}
			args[j] = v
		}
		argSets = append(argSets, args)
	}

	if err := db.ExecBatch(ctx, insert, argSets); err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", p.TempName, err)
	}

	result.Copied = len(argSets)
	p.Logger.Info("copied rows", "from", p.Source.Name, "to", p.TempName,
		"copied", result.Copied, "skipped", result.Skipped)
	return result, nil
}

// cutOver drops the source table and renames the temp table to the final
// name. The two statements are not atomic with respect to each other.
func (p *Plan) cutOver(ctx context.Context, db databases.Database) error {
	if err := db.Exec(ctx, p.Source.DropSQL()); err != nil {
		return fmt.Errorf("failed to drop %s: %w", p.Source.Name, err)
	}
	p.Logger.Info("dropped source table", "table", p.Source.Name)

	temp := &schema.Table{Name: p.TempName}
	if err := db.Exec(ctx, temp.RenameSQL(p.Target.Name)); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", p.TempName, p.Target.Name, err)
	}
	p.Logger.Info("renamed target table", "from", p.TempName, "to", p.Target.Name)
	return nil
}

// refresh discards the stale source descriptor and registers a fresh
// snapshot of the final table. Skipping this step leaves the metadata
// pointing at a name that now resolves to the reshaped table, or at
// nothing at all.
func (p *Plan) refresh(ctx context.Context, db databases.Database, meta *schema.Metadata) (*schema.Table, error) {
	if meta == nil {
		return db.Reflect(ctx, p.Target.Name)
	}
	meta.Remove(p.Source.Name)
	table, err := meta.Refresh(ctx, db, p.Target.Name)
	if err != nil {
		return nil, err
	}
	p.Logger.Info("refreshed descriptor", "table", table.Name, "columns", len(table.Columns))
	return table, nil
}
