package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	key     string
	value   any
	created time.Time
	ttl     time.Duration
}

// namespace is the LRU list backing one cached function.
type namespace struct {
	mu         sync.Mutex
	maxEntries int
	items      map[string]*list.Element
	order      *list.List // front is most recently used
}

func newNamespace() *namespace {
	return &namespace{
		items: make(map[string]*list.Element),
		order: list.New(),
	}
}

// get returns the value stored under key if it is still fresh at now.
// Expired entries are dropped on the way out.
func (n *namespace) get(key string, now time.Time) (any, bool, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	el, ok := n.items[key]
	if !ok {
		return nil, false, false
	}
	e := el.Value.(*entry)
	if !fresh(e.created, e.ttl, now) {
		n.removeElement(el)
		return nil, false, true
	}
	n.order.MoveToFront(el)
	return e.value, true, false
}

// set stores value and returns how many entries were evicted to respect the bound.
func (n *namespace) set(key string, value any, now time.Time, p Policy) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	if p.Bounded() {
		n.maxEntries = p.MaxEntries
	} else {
		n.maxEntries = 0
	}

	if el, ok := n.items[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.created = now
		e.ttl = p.TTL
		n.order.MoveToFront(el)
	} else {
		el := n.order.PushFront(&entry{key: key, value: value, created: now, ttl: p.TTL})
		n.items[key] = el
	}

	evicted := 0
	for n.maxEntries > 0 && n.order.Len() > n.maxEntries {
		n.removeElement(n.order.Back())
		evicted++
	}
	return evicted
}

func (n *namespace) delete(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	el, ok := n.items[key]
	if !ok {
		return false
	}
	n.removeElement(el)
	return true
}

func (n *namespace) len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.order.Len()
}

// removeElement must be called with n.mu held.
func (n *namespace) removeElement(el *list.Element) {
	n.order.Remove(el)
	delete(n.items, el.Value.(*entry).key)
}
