package lru

// handle indexes a node in the arena. Handle 0 is the sentinel.
type handle int

const sentinel handle = 0

// node is a list element stored by value in the arena.
// Links are handles, not pointers, so the arena can grow without
// invalidating them and evicted slots can be recycled.
type node[K comparable, V any] struct {
	key  K
	val  V
	cost float64

	// sentinel.next is LRU, sentinel.prev is MRU.
	prev handle
	next handle

	live bool
}

// arena owns every node, including the sentinel at index 0.
// The list is circular: an empty list is the sentinel linked to itself.
type arena[K comparable, V any] struct {
	nodes []node[K, V]
	free  []handle
}

func newArena[K comparable, V any](hint int) arena[K, V] {
	if hint < 0 {
		hint = 0
	}
	a := arena[K, V]{nodes: make([]node[K, V], 1, hint+1)}
	a.reset()
	return a
}

// reset unlinks everything and releases all slots except the sentinel.
func (a *arena[K, V]) reset() {
	clear(a.nodes[1:])
	a.nodes = a.nodes[:1]
	a.free = a.free[:0]
	a.nodes[sentinel] = node[K, V]{prev: sentinel, next: sentinel}
}

// alloc returns a fresh, unlinked slot, reusing a freed one when possible.
func (a *arena[K, V]) alloc(k K, v V, cost float64) handle {
	var h handle
	if n := len(a.free); n > 0 {
		h = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.nodes = append(a.nodes, node[K, V]{})
		h = handle(len(a.nodes) - 1)
	}
	a.nodes[h] = node[K, V]{key: k, val: v, cost: cost, live: true}
	return h
}

// release zeroes the slot so the arena drops its key/value references.
// The node must already be unlinked.
func (a *arena[K, V]) release(h handle) {
	a.nodes[h] = node[K, V]{}
	a.free = append(a.free, h)
}

// pushBack links h just before the sentinel (MRU position) in O(1).
func (a *arena[K, V]) pushBack(h handle) {
	last := a.nodes[sentinel].prev
	a.nodes[h].prev = last
	a.nodes[h].next = sentinel
	a.nodes[last].next = h
	a.nodes[sentinel].prev = h
}

// unlink detaches h from its neighbours in O(1).
func (a *arena[K, V]) unlink(h handle) {
	n := &a.nodes[h]
	a.nodes[n.prev].next = n.next
	a.nodes[n.next].prev = n.prev
	n.prev, n.next = sentinel, sentinel
}

// touch moves h to MRU.
func (a *arena[K, V]) touch(h handle) {
	if a.nodes[sentinel].prev == h {
		return
	}
	a.unlink(h)
	a.pushBack(h)
}

// front returns the LRU node, or the sentinel if the list is empty.
func (a *arena[K, V]) front() handle { return a.nodes[sentinel].next }
