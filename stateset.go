package fsm

import "slices"

// mix32 is the 32-bit finalizer step of MurmurHash3, used to spread state
// numbers before they are summed into a set hash.
func mix32(v int) int {
	k := uint32(v)
	k = (k ^ (k >> 16)) * 0x85ebca6b
	k = (k ^ (k >> 13)) * 0xc2b2ae35
	return int(k ^ (k >> 16))
}

// StateSet is a mutable multiset of state numbers with an incrementally
// maintained order-independent hash. It is the scratch representation used
// while computing the successor of a composite state; Freeze produces the
// immutable form used as a map key.
type StateSet struct {
	inner       map[int]int
	hashUpdated bool
	hashCode    uint64
}

func NewStateSet() *StateSet {
	return &StateSet{
		inner: make(map[int]int),
	}
}

func (s *StateSet) Hash() uint64 {
	if s.hashUpdated {
		return s.hashCode
	}
	s.hashCode = uint64(len(s.inner))
	for k := range s.inner {
		s.hashCode += uint64(mix32(k))
	}
	s.hashUpdated = true
	return s.hashCode
}

func (s *StateSet) Equals(other Hashable) bool {
	o, ok := other.(interface{ Members() []int })
	if !ok {
		return false
	}
	return slices.Equal(s.Members(), o.Members())
}

// Members returns the distinct states in ascending order.
func (s *StateSet) Members() []int {
	keys := make([]int, 0, len(s.inner))
	for k := range s.inner {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (s *StateSet) Size() int {
	return len(s.inner)
}

// Incr adds one occurrence of state.
func (s *StateSet) Incr(state int) {
	s.inner[state]++
	if s.inner[state] == 1 {
		s.hashUpdated = false
	}
}

// Decr removes one occurrence of state, dropping it when the count hits zero.
func (s *StateSet) Decr(state int) {
	count, ok := s.inner[state]
	if !ok {
		return
	}
	if count == 1 {
		delete(s.inner, state)
		s.hashUpdated = false
	} else {
		s.inner[state]--
	}
}

// Freeze returns an immutable snapshot of the set.
func (s *StateSet) Freeze() *FrozenStateSet {
	return &FrozenStateSet{
		members:  s.Members(),
		hashCode: s.Hash(),
	}
}

// FrozenStateSet is an immutable sorted set of state numbers with a cached
// hash. It is the composite-state representation of the subset construction.
type FrozenStateSet struct {
	members  []int
	hashCode uint64
}

func NewFrozenStateSet(members []int) *FrozenStateSet {
	members = slices.Clone(members)
	slices.Sort(members)
	hashCode := uint64(len(members))
	for _, k := range members {
		hashCode += uint64(mix32(k))
	}
	return &FrozenStateSet{members: members, hashCode: hashCode}
}

func (f *FrozenStateSet) Hash() uint64 {
	return f.hashCode
}

func (f *FrozenStateSet) Equals(other Hashable) bool {
	o, ok := other.(interface{ Members() []int })
	if !ok || other.Hash() != f.hashCode {
		return false
	}
	return slices.Equal(f.members, o.Members())
}

// Members returns the states in ascending order. The slice must not be
// mutated.
func (f *FrozenStateSet) Members() []int {
	return f.members
}

func (f *FrozenStateSet) Size() int {
	return len(f.members)
}
