// Package sqldocs carries the deck-model DDL scripts embedded from the docs
// tree, so binaries need no filesystem access to apply them.
package sqldocs

import _ "embed"

// SQLite is the deck-model DDL script for SQLite deployments.
//
//go:embed sqlite.sql
var SQLite string

// Postgres is the deck-model DDL script for Postgres deployments.
//
//go:embed postgres.sql
var Postgres string
