// Package cache memoizes expensive connection reads.
//
// A Store holds one namespace per cached function. Each namespace is an LRU
// list bounded by the Policy's MaxEntries, and every entry carries the TTL it
// was written with. Memoize wraps a read function so that identical
// arguments return the stored result until the entry expires.
//
// The connection a read runs against is passed as its own argument and never
// contributes to the key, so a reset connection keeps serving earlier
// results.
package cache
