package cache

import "context"

// ReadFunc is a read against a connection of type C with arguments A.
type ReadFunc[C, A, R any] func(ctx context.Context, conn C, args A) (R, error)

// Memoize wraps fn so that results are stored in ns under a key derived from
// args alone. conn is never part of the key.
//
// On a hit the stored value is returned as-is, so pointer results keep their
// identity. Errors are never stored. If args cannot be keyed, or s is nil, or
// p disables caching, fn runs directly.
func Memoize[C, A, R any](s *Store, ns string, fn ReadFunc[C, A, R], p Policy) ReadFunc[C, A, R] {
	if s == nil || !p.ShouldCache() || ValidateNamespace(ns) != nil {
		return fn
	}

	return func(ctx context.Context, conn C, args A) (R, error) {
		key, err := s.keyer.Key(ns, args)
		if err != nil {
			return fn(ctx, conn, args)
		}

		if v, ok := s.Get(ns, key); ok {
			if r, ok := v.(R); ok {
				return r, nil
			}
		}

		result, err := fn(ctx, conn, args)
		if err != nil {
			return result, err
		}
		s.Set(ns, key, result, p)
		return result, nil
	}
}
