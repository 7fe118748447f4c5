// Package schema embeds the database schema so main and the tests can apply
// it without shelling out to psql.
package schema

import _ "embed"

//go:embed schema.sql
var DDL string
