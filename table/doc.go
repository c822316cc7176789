// Package table holds the tabular result shared by the SQL, embedded,
// file and Snowpark backends.
//
// A Table is a plain value: column names plus row slices. It is what cached
// reads return, so callers must treat it as read-only; a cache hit hands back
// the same *Table to every caller.
package table
