// Package postgres implements the store interfaces on PostgreSQL through
// database/sql and the pgx stdlib driver. It also embeds the goose schema
// migrations.
package postgres
