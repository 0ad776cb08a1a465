package fsm

// DetermineTask describes an automaton to the Determine driver, indirectly:
// the driver only ever sees the initial composite state and whatever Next
// returns. S is the composite-state type (a set of old states, a pair of
// scanner states, and so on); R is the result type handed back verbatim.
//
// The driver takes no care of any payload (final flags, tags included); it
// is the task's responsibility to agglutinate payload in its sinks.
type DetermineTask[S Hashable, R any] interface {
	// Letters returns the alphabet equivalence partition. Next and Connect
	// only ever see class representatives.
	Letters() LetterPartition

	// Initial returns the starting composite state. Called once.
	Initial() S

	// Next computes the successor of state under the given letter. It must
	// be a pure function of its arguments.
	Next(state S, ch Char) S

	// IsRequired reports whether outgoing transitions of state should be
	// computed. A non-required state keeps its index but contributes no
	// transition row.
	IsRequired(state S) bool

	// AcceptStates is called exactly once, with all discovered states in
	// index order, before any Connect call.
	AcceptStates(states []S)

	// Connect is called once per (required state, letter class) pair, with
	// the class representative as the letter.
	Connect(from, to int, ch Char)

	Success() R
	Failure() R
}

// Determine drives FSM determination and determine-like constructions such
// as scanner agglutination. Given the automaton indirectly specified by the
// task, it performs a breadth-first traversal, finding and enumerating all
// effectively reachable composite states, then passes the states and the
// transitions between them back to the task.
//
// The initial state is always placed at index zero. maxSize bounds the
// number of states discovered beyond the initial one; when the bound is hit
// the driver returns task.Failure() without having called any sink.
func Determine[S Hashable, R any](task DetermineTask[S, R], maxSize int) R {
	letters := task.Letters()

	states := []S{task.Initial()}
	invStates := NewHashMap[int](1)
	invStates.Set(states[0], 0)

	var transitions [][]int
	var stateIndices []int

	for stateIdx := 0; stateIdx < len(states); stateIdx++ {
		if !task.IsRequired(states[stateIdx]) {
			continue
		}
		row := make([]int, letters.Size())
		for repr, class := range letters.All() {
			next := task.Next(states[stateIdx], repr)
			idx, ok := invStates.Get(next)
			if !ok {
				if maxSize == 0 {
					return task.Failure()
				}
				maxSize--
				idx = len(states)
				invStates.Set(next, idx)
				states = append(states, next)
			}
			row[class.Index] = idx
		}
		transitions = append(transitions, row)
		stateIndices = append(stateIndices, stateIdx)
	}

	invLetters := make([]Char, letters.Size())
	for repr, class := range letters.All() {
		invLetters[class.Index] = repr
	}

	task.AcceptStates(states)
	for rowIdx, row := range transitions {
		for classIdx, to := range row {
			task.Connect(stateIndices[rowIdx], to, invLetters[classIdx])
		}
	}
	return task.Success()
}
