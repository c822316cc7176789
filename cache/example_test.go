package cache_test

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/dataconn/cache"
)

func ExampleMemoize() {
	store := cache.NewStore()

	calls := 0
	lookup := func(_ context.Context, db map[string]int, name string) (int, error) {
		calls++
		return db[name], nil
	}

	read := cache.Memoize(store, "pets:age", lookup, cache.Policy{TTL: time.Minute})

	db := map[string]int{"rex": 4}
	a, _ := read(context.Background(), db, "rex")
	b, _ := read(context.Background(), db, "rex")

	fmt.Println(a, b, "calls:", calls)
	// Output:
	// 4 4 calls: 1
}

func ExampleStore_Stats() {
	store := cache.NewStore()
	p := cache.Policy{TTL: cache.NoExpiry, MaxEntries: 1}

	store.Set("ns", "a", 1, p)
	store.Set("ns", "b", 2, p)
	_, _ = store.Get("ns", "a")
	_, _ = store.Get("ns", "b")

	st := store.Stats()
	fmt.Println("hits:", st.Hits, "misses:", st.Misses, "evictions:", st.Evictions)
	// Output:
	// hits: 1 misses: 1 evictions: 1
}
