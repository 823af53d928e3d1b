// Package schema holds in-code table descriptors and generates the SQL
// statements that materialize them. A descriptor is a snapshot of a table's
// shape: it does not track the live catalog, so any DDL performed outside of
// it (a rename, a dropped column) leaves it stale until re-reflected.
package schema

import (
	"fmt"
	"strings"
)

type Column struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Nullable      bool   `json:"nullable"`
	PrimaryKey    bool   `json:"primary_key,omitempty"`
	Autoincrement bool   `json:"autoincrement,omitempty"`
}

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// NewTable builds a descriptor from an ordered column list.
func NewTable(name string, columns ...Column) *Table {
	return &Table{Name: name, Columns: columns}
}

// Column returns the named column and whether it exists.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// PrimaryKey returns the primary-key column names in declaration order.
func (t *Table) PrimaryKey() []string {
	var pk []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

// SameShape reports whether two descriptors declare the same column set
// (name, type, nullability, primary key), ignoring the table name and the
// column order. Reflecting the same table twice must yield SameShape
// descriptors.
func (t *Table) SameShape(other *Table) bool {
	if other == nil || len(t.Columns) != len(other.Columns) {
		return false
	}
	for _, c := range t.Columns {
		o, ok := other.Column(c.Name)
		if !ok {
			return false
		}
		if !strings.EqualFold(c.Type, o.Type) || c.Nullable != o.Nullable || c.PrimaryKey != o.PrimaryKey {
			return false
		}
	}
	return true
}

// CreateSQL renders a CREATE TABLE statement for the descriptor.
func (t *Table) CreateSQL() string {
	defs := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		def := quoteIdent(c.Name) + " " + c.Type
		if c.PrimaryKey {
			def += " PRIMARY KEY"
			if c.Autoincrement {
				def += " AUTOINCREMENT"
			}
		} else if !c.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(t.Name), strings.Join(defs, ", "))
}

// InsertSQL renders a multi-row INSERT for the given columns with one
// placeholder group per row. Columns defaults to every declared column.
func (t *Table) InsertSQL(columns []string, rowCount int) string {
	if len(columns) == 0 {
		columns = t.ColumnNames()
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	group := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	groups := make([]string, rowCount)
	for i := range groups {
		groups[i] = group
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		quoteIdent(t.Name), strings.Join(quoted, ", "), strings.Join(groups, ", "))
}

// SelectSQL renders SELECT of every declared column, in declaration order.
func (t *Table) SelectSQL() string {
	quoted := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		quoted[i] = quoteIdent(c.Name)
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), quoteIdent(t.Name))
}

// DropSQL renders DROP TABLE for the descriptor.
func (t *Table) DropSQL() string {
	return "DROP TABLE " + quoteIdent(t.Name)
}

// RenameSQL renders ALTER TABLE ... RENAME TO the given name. The descriptor
// itself is not mutated: after executing the statement it is stale and must
// be re-reflected under the new name.
func (t *Table) RenameSQL(newName string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quoteIdent(t.Name), quoteIdent(newName))
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
