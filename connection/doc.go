// Package connection implements the lifecycle of named, configuration-driven
// connections to external data sources.
//
// A Type describes one backend: its tag, its default config section name and
// a factory. The Manager resolves a request to a Key, constructs the
// connection at most once per key, and hands the same instance back on every
// later request. Backends build on Base, which owns the native handle and
// implements the state machine:
//
//	uninitialized --construct--> live --reset--> live
//	                               \--close--> closed
//
// Read composes the result cache with retry-and-reset around a single
// backend call:
//
//	tbl, err := connection.Read(ctx, base, "query", q, runQuery,
//		connection.WithTTL(time.Minute))
//
// The connection itself never becomes part of a cache key.
//
// # Concurrency
//
// Manager and Base are safe for concurrent use. Reset swaps the handle under
// an exclusive lock; readers already holding the previous handle may see it
// closed underneath them, fail, and retry against the new one.
package connection
