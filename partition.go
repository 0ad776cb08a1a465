package fsm

import (
	"fmt"
	"iter"
)

// Class is one equivalence class of a Partition. Index values are dense in
// [0, Size) and assigned in class-creation order. Members keeps elements in
// the order they were appended; Members[0] is the class representative.
type Class[T comparable] struct {
	Index   int
	Members []T
}

// Representative returns the canonical member of the class.
func (c *Class[T]) Representative() T {
	return c.Members[0]
}

// Partition groups elements into equivalence classes under a predicate.
// An element joins the first class whose representative it is equivalent to,
// so the predicate must be an equivalence relation for the grouping to be
// well defined. All iteration orders are deterministic.
type Partition[T comparable] struct {
	eq      func(a, b T) bool
	classes []*Class[T]
	index   map[T]int
}

func NewPartition[T comparable](eq func(a, b T) bool) *Partition[T] {
	return &Partition[T]{
		eq:    eq,
		index: make(map[T]int),
	}
}

// Append inserts x, merging it into the first class whose representative is
// equivalent to it, or opening a new class.
func (p *Partition[T]) Append(x T) {
	p.appendFrom(0, x)
}

// appendFrom is Append restricted to classes at position start and later.
func (p *Partition[T]) appendFrom(start int, x T) {
	for i := start; i < len(p.classes); i++ {
		c := p.classes[i]
		if p.eq(c.Members[0], x) {
			c.Members = append(c.Members, x)
			p.index[x] = i
			return
		}
	}
	p.classes = append(p.classes, &Class[T]{
		Index:   len(p.classes),
		Members: []T{x},
	})
	p.index[x] = len(p.classes) - 1
}

// Split re-partitions every class under newEq, which must be a refinement of
// the current relation (this is not verified). Members are re-appended in
// stored order, so class indices re-densify deterministically and each
// element can only end up in a subclass of its former class.
func (p *Partition[T]) Split(newEq func(a, b T) bool) {
	old := p.classes
	p.eq = newEq
	p.classes = make([]*Class[T], 0, len(old))
	for _, c := range old {
		start := len(p.classes)
		for _, m := range c.Members {
			p.appendFrom(start, m)
		}
	}
}

// Contains reports whether x has been appended.
func (p *Partition[T]) Contains(x T) bool {
	_, ok := p.index[x]
	return ok
}

// Index returns the dense class index of x, or -1 if x is unknown.
func (p *Partition[T]) Index(x T) int {
	if i, ok := p.index[x]; ok {
		return i
	}
	return -1
}

// ClassOf returns the class containing x, or nil if x is unknown.
func (p *Partition[T]) ClassOf(x T) *Class[T] {
	if i, ok := p.index[x]; ok {
		return p.classes[i]
	}
	return nil
}

// Representative returns the canonical member of x's class. It is stable
// between structural mutations of the partition.
func (p *Partition[T]) Representative(x T) T {
	i, ok := p.index[x]
	if !ok {
		panic(fmt.Sprintf("fsm: %v is not in the partition", x))
	}
	return p.classes[i].Members[0]
}

// Size returns the number of classes.
func (p *Partition[T]) Size() int {
	return len(p.classes)
}

// Elements returns the number of appended elements.
func (p *Partition[T]) Elements() int {
	return len(p.index)
}

// All yields (representative, class) pairs in dense index order.
func (p *Partition[T]) All() iter.Seq2[T, *Class[T]] {
	return func(yield func(T, *Class[T]) bool) {
		for _, c := range p.classes {
			if !yield(c.Members[0], c) {
				return
			}
		}
	}
}

// LetterPartition is the alphabet equivalence partition consumed by the
// Determine and Minimize drivers. Every symbol belongs to exactly one class;
// the class representative stands for all of its members in Next calls.
type LetterPartition = *Partition[Char]
