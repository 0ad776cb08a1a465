package fsm

// Run reports whether a determined machine accepts the input. A machine
// that has not been determined accepts nothing.
func Run(f *FSM, input string) bool {
	return RunBytes(f, []byte(input))
}

// RunBytes is Run over a raw byte slice.
func RunBytes(f *FSM, input []byte) bool {
	if !f.IsDetermined() {
		return false
	}
	state := 0
	for _, b := range input {
		state = f.step(state, Char(b))
		if state < 0 {
			return false
		}
	}
	return f.IsFinal(state)
}
