package databases

import (
	"fmt"

	"github.com/dkozlov/tableprimer/databases/mysql"
	"github.com/dkozlov/tableprimer/databases/postgres"
	"github.com/dkozlov/tableprimer/databases/sqlite"
)

// NewConnector opens a connection for the given dialect. The connection
// string format is dialect specific: a file path or ":memory:" for sqlite,
// a DSN for mysql and postgres.
func NewConnector(dialect, connectionString string) (Database, error) {
	switch dialect {
	case "sqlite":
		return sqlite.New(connectionString)
	case "mysql":
		return mysql.New(connectionString)
	case "postgres":
		return postgres.New(connectionString)
	default:
		return nil, fmt.Errorf("unsupported database dialect: %s", dialect)
	}
}
