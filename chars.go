package fsm

// Char is an input symbol. It is an alias for int so that flat transition
// tables can be indexed by state*MaxChar+ch without conversions.
type Char = int

const (
	// MaxCharCode is the greatest real input symbol; the alphabet is bytes.
	MaxCharCode Char = 255

	// Epsilon marks a spontaneous transition.
	Epsilon Char = 257

	// BeginMark and EndMark are synthetic begin/end-of-input symbols.
	BeginMark Char = 258
	EndMark   Char = 259

	// MaxChar is the full alphabet size, including the synthetic markers.
	// Flat per-symbol tables are strided by it.
	MaxChar Char = 260
)
