package fsm

import (
	"errors"
	"slices"

	"github.com/bits-and-blooms/bitset"
)

var (
	// ErrTooManyStates is returned when determinization would discover more
	// states than its budget allows.
	ErrTooManyStates = errors.New("fsm: determinization state budget exceeded")

	// ErrNotDetermined is returned when an operation defined only on
	// determined automata is applied to a non-determined one.
	ErrNotDetermined = errors.New("fsm: automaton is not determined")
)

// FSM is a finite-state machine over the byte alphabet plus the synthetic
// markers. State 0 is always the initial state. Transitions may be
// nondeterministic and may include Epsilon edges; Determine turns the
// machine into an equivalent deterministic one.
//
// Each state carries a tag, a caller-defined bitmask payload. Tags are OR-ed
// together when states are merged by epsilon removal or determinization, and
// keep otherwise equivalent states apart during minimization.
type FSM struct {
	trans      []map[Char]map[int]struct{}
	finals     *bitset.BitSet
	tags       []int
	determined bool

	letters LetterPartition // lazily built, dropped on mutation
}

// NewFSM returns a machine with a single non-final initial state.
func NewFSM() *FSM {
	return &FSM{
		trans:  make([]map[Char]map[int]struct{}, 1),
		finals: bitset.New(1),
		tags:   make([]int, 1),
	}
}

func newFSMSized(n int) *FSM {
	return &FSM{
		trans:  make([]map[Char]map[int]struct{}, n),
		finals: bitset.New(uint(n)),
		tags:   make([]int, n),
	}
}

// Size returns the number of states.
func (f *FSM) Size() int {
	return len(f.trans)
}

// CreateState adds a state and returns its number.
func (f *FSM) CreateState() int {
	f.trans = append(f.trans, nil)
	f.tags = append(f.tags, 0)
	return f.Size() - 1
}

// Resize grows the machine to at least n states.
func (f *FSM) Resize(n int) {
	for f.Size() < n {
		f.CreateState()
	}
}

// Connect adds a transition from one state to another on the given symbol.
func (f *FSM) Connect(from, to int, ch Char) {
	if to < 0 || to >= f.Size() {
		panic("fsm: transition target out of range")
	}
	row := f.trans[from]
	if row == nil {
		row = make(map[Char]map[int]struct{})
		f.trans[from] = row
	}
	dests := row[ch]
	if dests == nil {
		dests = make(map[int]struct{})
		row[ch] = dests
	}
	dests[to] = struct{}{}
	f.determined = false
	f.letters = nil
}

// ConnectEpsilon adds a spontaneous transition.
func (f *FSM) ConnectEpsilon(from, to int) {
	f.Connect(from, to, Epsilon)
}

// SetFinal marks or unmarks a state as final.
func (f *FSM) SetFinal(state int, final bool) {
	f.finals.SetTo(uint(state), final)
}

// IsFinal reports whether a state is final.
func (f *FSM) IsFinal(state int) bool {
	return f.finals.Test(uint(state))
}

// Finals returns the final states in ascending order.
func (f *FSM) Finals() []int {
	finals := make([]int, 0, f.finals.Count())
	for s, ok := f.finals.NextSet(0); ok && int(s) < f.Size(); s, ok = f.finals.NextSet(s + 1) {
		finals = append(finals, int(s))
	}
	return finals
}

// SetTag attaches a payload bitmask to a state.
func (f *FSM) SetTag(state, tag int) {
	f.tags[state] = tag
}

// Tag returns the payload bitmask of a state.
func (f *FSM) Tag(state int) int {
	return f.tags[state]
}

// IsDetermined reports whether the machine went through Determine and has
// not been mutated since.
func (f *FSM) IsDetermined() bool {
	return f.determined
}

// Destinations returns the transition targets for (from, ch) in ascending
// order.
func (f *FSM) Destinations(from int, ch Char) []int {
	dests := f.trans[from][ch]
	out := make([]int, 0, len(dests))
	for to := range dests {
		out = append(out, to)
	}
	slices.Sort(out)
	return out
}

// step returns the single transition target for (from, ch), or -1 when there
// is none. On a nondeterministic edge the smallest target wins, keeping the
// result deterministic.
func (f *FSM) step(from int, ch Char) int {
	next := -1
	for to := range f.trans[from][ch] {
		if next < 0 || to < next {
			next = to
		}
	}
	return next
}

// Clone returns a deep copy.
func (f *FSM) Clone() *FSM {
	out := &FSM{
		trans:      make([]map[Char]map[int]struct{}, f.Size()),
		finals:     f.finals.Clone(),
		tags:       slices.Clone(f.tags),
		determined: f.determined,
	}
	for s, row := range f.trans {
		if row == nil {
			continue
		}
		newRow := make(map[Char]map[int]struct{}, len(row))
		for ch, dests := range row {
			newDests := make(map[int]struct{}, len(dests))
			for to := range dests {
				newDests[to] = struct{}{}
			}
			newRow[ch] = newDests
		}
		out.trans[s] = newRow
	}
	return out
}

// Import appends a copy of other's states and transitions and returns the
// offset at which they were placed (other's state s becomes offset+s).
func (f *FSM) Import(other *FSM) int {
	offset := f.Size()
	for s := 0; s < other.Size(); s++ {
		f.CreateState()
		f.tags[offset+s] = other.tags[s]
	}
	for s, row := range other.trans {
		for ch, dests := range row {
			for to := range dests {
				f.Connect(offset+s, offset+to, ch)
			}
		}
	}
	for _, s := range other.Finals() {
		f.SetFinal(offset+s, true)
	}
	return offset
}

// Append concatenates other onto f: f recognizes L(f)·L(other) afterwards.
func (f *FSM) Append(other *FSM) {
	oldFinals := f.Finals()
	offset := f.Import(other)
	for _, fin := range oldFinals {
		f.ConnectEpsilon(fin, offset)
		f.SetFinal(fin, false)
	}
}

// Alternate unions other into f: f recognizes L(f) ∪ L(other) afterwards.
func (f *FSM) Alternate(other *FSM) {
	offset := f.Import(other)
	f.ConnectEpsilon(0, offset)
}

// Iterate applies the Kleene star: f recognizes L(f)* afterwards. A fresh
// final initial state is introduced so that loops cannot overaccept.
func (f *FSM) Iterate() {
	star := NewFSM()
	star.SetFinal(0, true)
	offset := star.Import(f)
	star.ConnectEpsilon(0, offset)
	for _, fin := range f.Finals() {
		star.ConnectEpsilon(offset+fin, 0)
	}
	*f = *star
}

// Optional makes f also accept the empty string.
func (f *FSM) Optional() {
	opt := NewFSM()
	opt.SetFinal(0, true)
	offset := opt.Import(f)
	opt.ConnectEpsilon(0, offset)
	*f = *opt
}

func (f *FSM) hasEpsilons() bool {
	for _, row := range f.trans {
		if len(row[Epsilon]) != 0 {
			return true
		}
	}
	return false
}

// epsilonClosure returns the states reachable from state through Epsilon
// edges alone, in ascending order, state itself included.
func (f *FSM) epsilonClosure(state int) []int {
	seen := bitset.New(uint(f.Size()))
	seen.Set(uint(state))
	stack := []int{state}
	for len(stack) != 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for to := range f.trans[s][Epsilon] {
			if !seen.Test(uint(to)) {
				seen.Set(uint(to))
				stack = append(stack, to)
			}
		}
	}
	closure := make([]int, 0, seen.Count())
	for s, ok := seen.NextSet(0); ok; s, ok = seen.NextSet(s + 1) {
		closure = append(closure, int(s))
	}
	return closure
}

// RemoveEpsilons eliminates all Epsilon transitions. Every state inherits
// the non-epsilon transitions, final flags and tags of its epsilon closure.
func (f *FSM) RemoveEpsilons() {
	if !f.hasEpsilons() {
		return
	}
	for state := range f.trans {
		for _, other := range f.epsilonClosure(state) {
			if other == state {
				continue
			}
			for ch, dests := range f.trans[other] {
				if ch == Epsilon {
					continue
				}
				for to := range dests {
					f.Connect(state, to, ch)
				}
			}
			if f.IsFinal(other) {
				f.SetFinal(state, true)
			}
			f.tags[state] |= f.tags[other]
		}
	}
	for state := range f.trans {
		delete(f.trans[state], Epsilon)
	}
	f.letters = nil
}

// Letters returns the machine's alphabet partition: two symbols are
// equivalent when every state maps them to identical destination sets. The
// partition is memoized until the next mutation.
func (f *FSM) Letters() LetterPartition {
	if f.letters == nil {
		p := NewPartition[Char](f.sameColumns)
		for ch := Char(0); ch <= MaxCharCode; ch++ {
			p.Append(ch)
		}
		f.letters = p
	}
	return f.letters
}

func (f *FSM) sameColumns(a, b Char) bool {
	for from := range f.trans {
		if !slices.Equal(f.Destinations(from, a), f.Destinations(from, b)) {
			return false
		}
	}
	return true
}

// determineTask adapts an epsilon-free FSM to the Determine driver.
// Composite states are frozen sets of old states; payload agglutination ORs
// tags and finalizes a set when any member is final.
type determineTask struct {
	fsm     *FSM
	letters LetterPartition
	output  *FSM
}

func (t *determineTask) Letters() LetterPartition { return t.letters }

func (t *determineTask) Initial() *FrozenStateSet {
	return NewFrozenStateSet([]int{0})
}

func (t *determineTask) Next(state *FrozenStateSet, ch Char) *FrozenStateSet {
	next := NewStateSet()
	for _, s := range state.Members() {
		for to := range t.fsm.trans[s][ch] {
			next.Incr(to)
		}
	}
	return next.Freeze()
}

func (t *determineTask) IsRequired(*FrozenStateSet) bool { return true }

func (t *determineTask) AcceptStates(states []*FrozenStateSet) {
	t.output = newFSMSized(len(states))
	for idx, set := range states {
		for _, s := range set.Members() {
			if t.fsm.IsFinal(s) {
				t.output.SetFinal(idx, true)
			}
			t.output.tags[idx] |= t.fsm.tags[s]
		}
	}
}

func (t *determineTask) Connect(from, to int, ch Char) {
	for _, member := range t.letters.ClassOf(ch).Members {
		t.output.Connect(from, to, member)
	}
}

func (t *determineTask) Success() error { return nil }
func (t *determineTask) Failure() error { return ErrTooManyStates }

// Determine replaces f with an equivalent deterministic machine via subset
// construction. maxSize bounds the number of subset states discovered beyond
// the initial one; on overflow ErrTooManyStates is returned and f keeps its
// current states (epsilon transitions, removed up front, do not come back).
func (f *FSM) Determine(maxSize int) error {
	f.RemoveEpsilons()
	task := &determineTask{fsm: f, letters: f.Letters()}
	if err := Determine[*FrozenStateSet, error](task, maxSize); err != nil {
		return err
	}
	task.output.determined = true
	*f = *task.output
	return nil
}

// minimizeTask adapts a determined FSM to the Minimize driver. Two states
// may only be identified when they agree on both the final flag and the tag.
type minimizeTask struct {
	fsm     *FSM
	classes *Partition[int]
}

func (t *minimizeTask) IsDetermined() bool       { return t.fsm.determined }
func (t *minimizeTask) Size() int                { return t.fsm.Size() }
func (t *minimizeTask) Letters() LetterPartition { return t.fsm.Letters() }

func (t *minimizeTask) Next(state int, ch Char) int {
	return t.fsm.step(state, ch)
}

func (t *minimizeTask) SameClasses(a, b int) bool {
	return t.fsm.IsFinal(a) == t.fsm.IsFinal(b) && t.fsm.tags[a] == t.fsm.tags[b]
}

func (t *minimizeTask) AcceptPartition(p *Partition[int]) { t.classes = p }

func (t *minimizeTask) Success() error { return nil }
func (t *minimizeTask) Failure() error { return ErrNotDetermined }

// Minimize collapses equivalent states of a determined machine in place.
// Returns ErrNotDetermined when f has not been determined.
func (f *FSM) Minimize() error {
	task := &minimizeTask{fsm: f}
	if err := Minimize[error](task); err != nil {
		return err
	}

	// The class containing state 0 is created first, so the collapsed
	// machine keeps its initial state at index 0.
	classIndex := make([]int, f.Size())
	for _, class := range task.classes.classes {
		for _, s := range class.Members {
			classIndex[s] = class.Index
		}
	}

	out := newFSMSized(task.classes.Size())
	for s, row := range f.trans {
		for ch, dests := range row {
			for to := range dests {
				out.Connect(classIndex[s], classIndex[to], ch)
			}
		}
		if f.IsFinal(s) {
			out.SetFinal(classIndex[s], true)
		}
		out.tags[classIndex[s]] |= f.tags[s]
	}
	out.determined = true
	*f = *out
	return nil
}
