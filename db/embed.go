// Package db embeds the storefront's PostgreSQL schema.
package db

import _ "embed"

// Schema contains the DDL for orders, carts and saved formulas. Every
// statement is idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string
