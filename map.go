package fsm

import "iter"

// Hashable is implemented by composite-state types so that the Determine
// driver can key its inverse state map by them. Hash must be stable and
// Equals must be true equality, not a hash comparison.
type Hashable interface {
	Hash() uint64
	Equals(other Hashable) bool
}

// HashMap is a chained-bucket hash map keyed by Hashable values. It is not
// safe for concurrent use; the drivers that use it are single-threaded.
type HashMap[V any] struct {
	buckets []*mapEntry[V]
	size    int
	mask    uint64
}

type mapEntry[V any] struct {
	key   Hashable
	value V
	next  *mapEntry[V]
}

const hashMapLoadFactor = 0.75

// NewHashMap creates a map with at least the given capacity, rounded up to a
// power of two.
func NewHashMap[V any](capacity int) *HashMap[V] {
	realCap := 1
	for realCap < capacity {
		realCap <<= 1
	}
	return &HashMap[V]{
		buckets: make([]*mapEntry[V], realCap),
		mask:    uint64(realCap - 1),
	}
}

// Set inserts or updates the value for key.
func (m *HashMap[V]) Set(key Hashable, value V) {
	index := key.Hash() & m.mask

	for e := m.buckets[index]; e != nil; e = e.next {
		if e.key.Equals(key) {
			e.value = value
			return
		}
	}

	m.buckets[index] = &mapEntry[V]{
		key:   key,
		value: value,
		next:  m.buckets[index],
	}
	m.size++

	if float64(m.size)/float64(len(m.buckets)) > hashMapLoadFactor {
		m.resize()
	}
}

// Get returns the value stored for key.
func (m *HashMap[V]) Get(key Hashable) (V, bool) {
	index := key.Hash() & m.mask

	for e := m.buckets[index]; e != nil; e = e.next {
		if e.key.Equals(key) {
			return e.value, true
		}
	}
	var empty V
	return empty, false
}

// Len returns the number of entries.
func (m *HashMap[V]) Len() int {
	return m.size
}

func (m *HashMap[V]) resize() {
	newCap := len(m.buckets) << 1
	newBuckets := make([]*mapEntry[V], newCap)
	newMask := uint64(newCap - 1)

	for _, head := range m.buckets {
		for e := head; e != nil; e = e.next {
			index := e.key.Hash() & newMask
			newBuckets[index] = &mapEntry[V]{
				key:   e.key,
				value: e.value,
				next:  newBuckets[index],
			}
		}
	}

	m.buckets = newBuckets
	m.mask = newMask
}

// All yields all entries. Order follows bucket layout and is unspecified.
func (m *HashMap[V]) All() iter.Seq2[Hashable, V] {
	return func(yield func(Hashable, V) bool) {
		for _, head := range m.buckets {
			for e := head; e != nil; e = e.next {
				if !yield(e.key, e.value) {
					return
				}
			}
		}
	}
}
