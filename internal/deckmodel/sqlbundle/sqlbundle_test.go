package sqlbundle

import (
	"slices"
	"strings"
	"testing"

	sqldocs "flowdeck/docs/schema/sql"
)

func TestBundledDDLSplitsCleanly(t *testing.T) {
	for _, tc := range []struct {
		name  string
		stmts []string
	}{
		{"sqlite", SQLiteStatements()},
		{"postgres", PostgresStatements()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if len(tc.stmts) == 0 {
				t.Fatal("bundled DDL produced no statements")
			}
			for _, stmt := range tc.stmts {
				trimmed := strings.TrimSpace(stmt)
				if strings.HasPrefix(trimmed, "--") {
					t.Fatalf("comment leaked into statement: %q", stmt)
				}
				if !strings.HasSuffix(trimmed, ";") {
					t.Fatalf("statement lost its terminator: %q", stmt)
				}
			}
		})
	}
}

func TestSplitStatementsShapes(t *testing.T) {
	cases := []struct {
		name string
		ddl  string
		want []string
	}{
		{
			name: "comments and blanks dropped",
			ddl:  "-- deck-model tables\n\nCREATE TABLE probes (id TEXT);\n",
			want: []string{"CREATE TABLE probes (id TEXT);"},
		},
		{
			name: "multi line statement stays together",
			ddl:  "CREATE TABLE surfaces (\n  id TEXT\n);\nCREATE INDEX surfaces_id ON surfaces (id);\n",
			want: []string{"CREATE TABLE surfaces (\n  id TEXT\n);", "CREATE INDEX surfaces_id ON surfaces (id);"},
		},
		{
			name: "trailing statement without semicolon",
			ddl:  "-- comment only\nCREATE TABLE t (id TEXT)",
			want: []string{"CREATE TABLE t (id TEXT)"},
		},
		{
			name: "empty input",
			ddl:  "",
			want: nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SplitStatements(tc.ddl); !slices.Equal(got, tc.want) {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestBundlesCoverSameTables(t *testing.T) {
	for _, table := range []string{"boundary_files", "boundary_conditions", "prescribed_motions", "probes", "surfaces", "config_sections"} {
		if !strings.Contains(sqldocs.SQLite, table) {
			t.Fatalf("sqlite DDL missing table %s", table)
		}
		if !strings.Contains(sqldocs.Postgres, table) {
			t.Fatalf("postgres DDL missing table %s", table)
		}
	}
}
