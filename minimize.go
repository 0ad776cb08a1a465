package fsm

// MinimizeTask describes a determined automaton to the Minimize driver.
// States are dense integers in [0, Size); R is the result type handed back
// verbatim.
type MinimizeTask[R any] interface {
	// IsDetermined reports whether the automaton is deterministic.
	// Minimization is only defined on determined automata.
	IsDetermined() bool

	// Size returns the number of states.
	Size() int

	// Letters returns the alphabet equivalence partition.
	Letters() LetterPartition

	// Next returns the transition target. Queried once per (state, class
	// representative); the result is fanned out to all class members.
	Next(state int, ch Char) int

	// SameClasses reports whether two states carry equal acceptance payload
	// (final flags, tags). States are only ever identified when it holds.
	SameClasses(a, b int) bool

	// AcceptPartition is called exactly once with the final equivalence
	// classes. Only the equivalence relation is meaningful; consumers must
	// not depend on representative identity.
	AcceptPartition(p *Partition[int])

	Success() R
	Failure() R
}

// determinedTransitions is a flat per-symbol transition table of a
// determined FSM, indexed as state*MaxChar+symbol. Expanding letter classes
// to raw symbols keeps the refinement predicate free of class lookups.
type determinedTransitions []int

func (t determinedTransitions) next(state int, ch Char) int {
	return t[state*MaxChar+ch]
}

// Minimize computes the coarsest partition of the task's states compatible
// with its acceptance classification, by iterative refinement to a
// fixpoint, and hands it to task.AcceptPartition. Returns task.Failure()
// without any work if the automaton is not determined.
func Minimize[R any](task MinimizeTask[R]) R {
	if !task.IsDetermined() {
		return task.Failure()
	}

	size := task.Size()
	letters := task.Letters()

	detTran := make(determinedTransitions, size*MaxChar)
	distinctLetters := make([]Char, 0, letters.Size())
	for repr, class := range letters.All() {
		distinctLetters = append(distinctLetters, repr)
		for from := 0; from < size; from++ {
			next := task.Next(from, repr)
			for _, ch := range class.Members {
				detTran[from*MaxChar+ch] = next
			}
		}
	}

	// Initial partition: acceptance only. Transitions must not be consulted
	// here, as no state has been classified yet.
	classes := NewPartition[int](task.SameClasses)
	for state := 0; state < size; state++ {
		classes.Append(state)
	}

	// Iteratively split classes until the state-to-representative map is
	// stable. Each Split round reads the snapshot taken by
	// updateStateClassMap, never its own in-progress refinement.
	stateClassMap := make([]int, size)
	for updateStateClassMap(stateClassMap, classes) {
		classes.Split(func(a, b int) bool {
			if stateClassMap[a] != stateClassMap[b] {
				return false
			}
			for _, ch := range distinctLetters {
				if stateClassMap[detTran.next(a, ch)] != stateClassMap[detTran.next(b, ch)] {
					return false
				}
			}
			return true
		})
	}

	task.AcceptPartition(classes)
	return task.Success()
}

// updateStateClassMap rewrites the state-to-representative map from the
// current partition and reports whether anything changed.
// TODO: only re-examine states whose class changed in the previous round.
func updateStateClassMap(stateClassMap []int, classes *Partition[int]) bool {
	changed := false
	for state := range stateClassMap {
		if cl := classes.Representative(state); stateClassMap[state] != cl {
			stateClassMap[state] = cl
			changed = true
		}
	}
	return changed
}
