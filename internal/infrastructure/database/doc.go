// Package database manages the SQLite persistence layer for HomeLink Core.
//
// It wraps database/sql with:
//   - Connection setup (WAL mode, busy timeout, foreign keys)
//   - Embedded schema migrations (see the migrations package)
//   - Health checks and lifecycle management
//
// SQLite is used single-writer: the pool is capped at one open connection,
// which also serialises the conditional-update race during pairing verify.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "./data/homelink.db", WALMode: true})
//	if err != nil { ... }
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil { ... }
package database
