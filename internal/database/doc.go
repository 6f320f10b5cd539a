// Package database opens the stores backing the status journal:
//   - PostgreSQL through a pgx connection pool
//   - SQLite through gorm, for single-host deployments and tests
package database
