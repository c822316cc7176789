// Package embedded is the "embedded" connection type: an in-process
// analytical database file opened with the pure-Go sqlite engine.
//
//	[connections.embedded]
//	database = "analytics.db"   # or ":memory:"
//	read_only = true
//
//	[connections.embedded.pragmas]
//	journal_mode = "wal"
//
// Query results are cached for an hour by default.
package embedded
