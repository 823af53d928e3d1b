package schema

import (
	"testing"
)

func usersTable() *Table {
	return NewTable("users",
		Column{Name: "id", Type: "INTEGER", PrimaryKey: true},
		Column{Name: "full_name", Type: "NVARCHAR(100)", Nullable: true},
	)
}

func TestCreateSQL(t *testing.T) {
	tests := []struct {
		name  string
		table *Table
		want  string
	}{
		{
			name:  "integer pk with nullable text",
			table: usersTable(),
			want:  `CREATE TABLE "users" ("id" INTEGER PRIMARY KEY, "full_name" NVARCHAR(100))`,
		},
		{
			name: "autoincrement pk",
			table: NewTable("playlists",
				Column{Name: "id", Type: "INTEGER", PrimaryKey: true, Autoincrement: true},
				Column{Name: "name", Type: "NVARCHAR(120)"},
			),
			want: `CREATE TABLE "playlists" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" NVARCHAR(120) NOT NULL)`,
		},
		{
			name: "nullable floats",
			table: NewTable("Coords",
				Column{Name: "x", Type: "FLOAT", Nullable: true},
				Column{Name: "y", Type: "FLOAT", Nullable: true},
			),
			want: `CREATE TABLE "Coords" ("x" FLOAT, "y" FLOAT)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.table.CreateSQL(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInsertSQL(t *testing.T) {
	table := usersTable()

	tests := []struct {
		name     string
		columns  []string
		rowCount int
		want     string
	}{
		{
			name:     "all columns single row",
			columns:  nil,
			rowCount: 1,
			want:     `INSERT INTO "users" ("id", "full_name") VALUES (?, ?)`,
		},
		{
			name:     "subset multi row",
			columns:  []string{"full_name"},
			rowCount: 3,
			want:     `INSERT INTO "users" ("full_name") VALUES (?), (?), (?)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := table.InsertSQL(tt.columns, tt.rowCount); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectDropRenameSQL(t *testing.T) {
	table := usersTable()

	if got, want := table.SelectSQL(), `SELECT "id", "full_name" FROM "users"`; got != want {
		t.Errorf("SelectSQL: got %q, want %q", got, want)
	}
	if got, want := table.DropSQL(), `DROP TABLE "users"`; got != want {
		t.Errorf("DropSQL: got %q, want %q", got, want)
	}
	if got, want := table.RenameSQL("people"), `ALTER TABLE "users" RENAME TO "people"`; got != want {
		t.Errorf("RenameSQL: got %q, want %q", got, want)
	}
}

func TestColumnLookup(t *testing.T) {
	table := usersTable()

	col, ok := table.Column("full_name")
	if !ok {
		t.Fatal("expected full_name to exist")
	}
	if col.Type != "NVARCHAR(100)" || !col.Nullable {
		t.Errorf("unexpected column: %+v", col)
	}

	if _, ok := table.Column("missing"); ok {
		t.Error("expected missing column lookup to fail")
	}
}

func TestPrimaryKey(t *testing.T) {
	table := usersTable()
	pk := table.PrimaryKey()
	if len(pk) != 1 || pk[0] != "id" {
		t.Errorf("got %v, want [id]", pk)
	}
}

func TestSameShape(t *testing.T) {
	base := usersTable()

	tests := []struct {
		name  string
		other *Table
		want  bool
	}{
		{
			name:  "identical shape different table name",
			other: NewTable("people", base.Columns...),
			want:  true,
		},
		{
			name: "column order does not matter",
			other: NewTable("users",
				Column{Name: "full_name", Type: "NVARCHAR(100)", Nullable: true},
				Column{Name: "id", Type: "INTEGER", PrimaryKey: true},
			),
			want: true,
		},
		{
			name: "type case does not matter",
			other: NewTable("users",
				Column{Name: "id", Type: "integer", PrimaryKey: true},
				Column{Name: "full_name", Type: "nvarchar(100)", Nullable: true},
			),
			want: true,
		},
		{
			name: "different nullability",
			other: NewTable("users",
				Column{Name: "id", Type: "INTEGER", PrimaryKey: true},
				Column{Name: "full_name", Type: "NVARCHAR(100)"},
			),
			want: false,
		},
		{
			name: "missing column",
			other: NewTable("users",
				Column{Name: "id", Type: "INTEGER", PrimaryKey: true},
			),
			want: false,
		},
		{
			name:  "nil",
			other: nil,
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.SameShape(tt.other); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuoting(t *testing.T) {
	table := NewTable(`bad"name`, Column{Name: "id", Type: "INTEGER", PrimaryKey: true})
	want := `CREATE TABLE "bad""name" ("id" INTEGER PRIMARY KEY)`
	if got := table.CreateSQL(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
