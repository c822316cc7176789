package cache

import "time"

// Policy configures one cached function.
type Policy struct {
	// TTL is how long an entry stays valid after it is written.
	// Zero disables caching, NoExpiry keeps entries until evicted.
	TTL time.Duration

	// MaxEntries bounds the namespace. Zero or negative means unbounded.
	MaxEntries int
}

// NoCachePolicy returns a policy that bypasses the store entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// ForeverPolicy returns a policy whose entries never expire.
func ForeverPolicy() Policy {
	return Policy{TTL: NoExpiry}
}

// ShouldCache reports whether the store is consulted at all.
func (p Policy) ShouldCache() bool {
	return p.TTL > 0 || p.TTL == NoExpiry
}

// Bounded reports whether the namespace has an entry limit.
func (p Policy) Bounded() bool {
	return p.MaxEntries > 0
}

// fresh reports whether an entry created at created is still valid at now.
// Validity ends exactly at created+ttl.
func fresh(created time.Time, ttl time.Duration, now time.Time) bool {
	if ttl == NoExpiry {
		return true
	}
	return now.Before(created.Add(ttl))
}
