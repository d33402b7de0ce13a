package sql

import _ "embed"

// Schema creates the session archive tables.
//
//go:embed schema.sql
var Schema string
