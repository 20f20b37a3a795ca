// Package storage holds the persistence configuration shared by the checklist
// API binaries and the Redis client constructor.
//
// The relational store itself lives in pkg/storage/sqlstore, which runs on
// either PostgreSQL (lib/pq) or SQLite (mattn/go-sqlite3) through sqlx, with
// the schema managed by embedded goose migrations.
package storage
