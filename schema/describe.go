package schema

// Index describes one secondary index on a table.
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// TableDescription is the full inspection snapshot of a live table: its
// reflected shape plus row count, a few sample rows, and index metadata.
// Like a Table it is a point-in-time snapshot.
type TableDescription struct {
	Name        string           `json:"name"`
	Columns     []Column         `json:"columns"`
	RowCount    int64            `json:"row_count"`
	SampleData  []map[string]any `json:"sample_data,omitempty"`
	Indexes     []Index          `json:"indexes,omitempty"`
	PrimaryKeys []string         `json:"primary_keys,omitempty"`
}
