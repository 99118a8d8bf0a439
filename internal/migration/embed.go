package migration

import (
	"embed"
	"fmt"
)

//go:embed sql/sqlite/*.sql sql/postgres/*.sql
var embeddedMigrations embed.FS

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

func migrationsDir(dialect string) (string, error) {
	switch dialect {
	case DialectSQLite, DialectPostgres:
		return "sql/" + dialect, nil
	default:
		return "", fmt.Errorf("unsupported migration dialect: %s", dialect)
	}
}

// bind rewrites ? placeholders to $n for postgres.
func bind(dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}
