// Package sqlbundle hands the embedded deck-model DDL to the persistence
// adapters, split into statements they can execute one at a time.
package sqlbundle

import (
	"strings"

	sqldocs "flowdeck/docs/schema/sql"
)

// SQLiteStatements lists the SQLite deck-model DDL in execution order.
func SQLiteStatements() []string {
	return SplitStatements(sqldocs.SQLite)
}

// PostgresStatements lists the Postgres deck-model DDL in execution order.
func PostgresStatements() []string {
	return SplitStatements(sqldocs.Postgres)
}

// SplitStatements breaks a DDL script into executable statements on
// terminating semicolons. Blank lines and "--" comment lines are dropped; a
// trailing statement without a semicolon is kept.
func SplitStatements(ddl string) []string {
	var stmts []string
	var chunk []string
	for line := range strings.Lines(ddl) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		chunk = append(chunk, strings.TrimRight(line, "\r\n"))
		if strings.HasSuffix(trimmed, ";") {
			stmts = append(stmts, strings.Join(chunk, "\n"))
			chunk = chunk[:0]
		}
	}
	if len(chunk) > 0 {
		stmts = append(stmts, strings.Join(chunk, "\n"))
	}
	return stmts
}
