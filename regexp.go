package fsm

import "fmt"

// DefaultDetermineLimit bounds the subset construction in Compile.
const DefaultDetermineLimit = 100000

// Parse compiles a regular expression into a nondeterministic machine built
// by Thompson construction; the result contains epsilon transitions.
//
// Supported syntax: literals, '.', character classes with ranges and
// negation, grouping, union '|', repetition '*' '+' '?' and '{n}' '{n,}'
// '{n,m}', and backslash escapes.
func Parse(pattern string) (*FSM, error) {
	p := &parser{input: []byte(pattern)}
	f, err := p.parseAlternation()
	if err != nil {
		return nil, err
	}
	if !p.eof() {
		return nil, fmt.Errorf("fsm: unexpected %q at position %d", p.peek(), p.pos)
	}
	return f, nil
}

// Compile parses the pattern and produces the minimal deterministic machine
// for it, ready to be passed to Run.
func Compile(pattern string) (*FSM, error) {
	f, err := Parse(pattern)
	if err != nil {
		return nil, err
	}
	if err := f.Determine(DefaultDetermineLimit); err != nil {
		return nil, fmt.Errorf("fsm: compiling %q: %w", pattern, err)
	}
	if err := f.Minimize(); err != nil {
		return nil, fmt.Errorf("fsm: compiling %q: %w", pattern, err)
	}
	return f, nil
}

type parser struct {
	input []byte
	pos   int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *parser) peek() byte {
	return p.input[p.pos]
}

func (p *parser) parseAlternation() (*FSM, error) {
	f, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	for !p.eof() && p.peek() == '|' {
		p.pos++
		g, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		f.Alternate(g)
	}
	return f, nil
}

func (p *parser) parseConcat() (*FSM, error) {
	f := emptyStringFSM()
	for !p.eof() && p.peek() != '|' && p.peek() != ')' {
		g, err := p.parseRepeat()
		if err != nil {
			return nil, err
		}
		f.Append(g)
	}
	return f, nil
}

func (p *parser) parseRepeat() (*FSM, error) {
	f, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for !p.eof() {
		switch p.peek() {
		case '*':
			p.pos++
			f.Iterate()
		case '+':
			p.pos++
			once := f.Clone()
			f.Iterate()
			once.Append(f)
			f = once
		case '?':
			p.pos++
			f.Optional()
		case '{':
			p.pos++
			min, max, unbounded, err := p.parseBounds()
			if err != nil {
				return nil, err
			}
			f = repeatFSM(f, min, max, unbounded)
		default:
			return f, nil
		}
	}
	return f, nil
}

func (p *parser) parseAtom() (*FSM, error) {
	if p.eof() {
		return nil, fmt.Errorf("fsm: unexpected end of pattern at position %d", p.pos)
	}
	switch c := p.peek(); c {
	case '(':
		p.pos++
		f, err := p.parseAlternation()
		if err != nil {
			return nil, err
		}
		if p.eof() || p.peek() != ')' {
			return nil, fmt.Errorf("fsm: missing ')' at position %d", p.pos)
		}
		p.pos++
		return f, nil
	case '[':
		p.pos++
		return p.parseClass()
	case '.':
		p.pos++
		return charSetFSM(func(int) bool { return true }), nil
	case '*', '+', '?', '{':
		return nil, fmt.Errorf("fsm: unexpected quantifier %q at position %d", c, p.pos)
	case '|', ')':
		return nil, fmt.Errorf("fsm: unexpected %q at position %d", c, p.pos)
	case '\\':
		p.pos++
		if p.eof() {
			return nil, fmt.Errorf("fsm: trailing backslash at position %d", p.pos-1)
		}
		ch := unescape(p.peek())
		p.pos++
		return literalFSM(ch), nil
	default:
		p.pos++
		return literalFSM(Char(c)), nil
	}
}

// parseClass parses the remainder of a character class; the opening '[' has
// already been consumed.
func (p *parser) parseClass() (*FSM, error) {
	start := p.pos - 1
	negate := false
	if !p.eof() && p.peek() == '^' {
		negate = true
		p.pos++
	}

	var set [256]bool
	first := true
	for {
		if p.eof() {
			return nil, fmt.Errorf("fsm: unterminated character class at position %d", start)
		}
		if p.peek() == ']' && !first {
			p.pos++
			break
		}
		first = false

		lo, err := p.classChar()
		if err != nil {
			return nil, err
		}
		hi := lo
		if !p.eof() && p.peek() == '-' && p.pos+1 < len(p.input) && p.input[p.pos+1] != ']' {
			p.pos++
			hi, err = p.classChar()
			if err != nil {
				return nil, err
			}
			if hi < lo {
				return nil, fmt.Errorf("fsm: invalid range in character class at position %d", start)
			}
		}
		for c := lo; c <= hi; c++ {
			set[c] = true
		}
	}

	return charSetFSM(func(c int) bool { return set[c] != negate }), nil
}

func (p *parser) classChar() (Char, error) {
	c := p.input[p.pos]
	p.pos++
	if c != '\\' {
		return Char(c), nil
	}
	if p.eof() {
		return 0, fmt.Errorf("fsm: trailing backslash at position %d", p.pos-1)
	}
	e := p.peek()
	p.pos++
	return unescape(e), nil
}

func unescape(c byte) Char {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case '0':
		return 0
	default:
		return Char(c)
	}
}

// parseBounds parses the remainder of a '{n}', '{n,}' or '{n,m}' repetition;
// the opening '{' has already been consumed.
func (p *parser) parseBounds() (min, max int, unbounded bool, err error) {
	start := p.pos - 1
	min, ok := p.parseInt()
	if !ok {
		return 0, 0, false, fmt.Errorf("fsm: invalid repetition at position %d", start)
	}
	max = min
	if !p.eof() && p.peek() == ',' {
		p.pos++
		if !p.eof() && p.peek() == '}' {
			unbounded = true
		} else {
			max, ok = p.parseInt()
			if !ok {
				return 0, 0, false, fmt.Errorf("fsm: invalid repetition at position %d", start)
			}
		}
	}
	if p.eof() || p.peek() != '}' {
		return 0, 0, false, fmt.Errorf("fsm: missing '}' at position %d", p.pos)
	}
	p.pos++
	if !unbounded && max < min {
		return 0, 0, false, fmt.Errorf("fsm: invalid repetition bounds at position %d", start)
	}
	return min, max, unbounded, nil
}

func (p *parser) parseInt() (int, bool) {
	if p.eof() || p.peek() < '0' || p.peek() > '9' {
		return 0, false
	}
	n := 0
	for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
		n = n*10 + int(p.peek()-'0')
		p.pos++
	}
	return n, true
}

// emptyStringFSM accepts exactly the empty string.
func emptyStringFSM() *FSM {
	f := NewFSM()
	f.SetFinal(0, true)
	return f
}

func literalFSM(ch Char) *FSM {
	f := NewFSM()
	s := f.CreateState()
	f.Connect(0, s, ch)
	f.SetFinal(s, true)
	return f
}

func charSetFSM(member func(c int) bool) *FSM {
	f := NewFSM()
	s := f.CreateState()
	for c := 0; c <= MaxCharCode; c++ {
		if member(c) {
			f.Connect(0, s, Char(c))
		}
	}
	f.SetFinal(s, true)
	return f
}

func repeatFSM(f *FSM, min, max int, unbounded bool) *FSM {
	out := emptyStringFSM()
	for i := 0; i < min; i++ {
		out.Append(f.Clone())
	}
	if unbounded {
		tail := f.Clone()
		tail.Iterate()
		out.Append(tail)
		return out
	}
	for i := min; i < max; i++ {
		opt := f.Clone()
		opt.Optional()
		out.Append(opt)
	}
	return out
}
