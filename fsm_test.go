package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSMConstruction(t *testing.T) {
	f := NewFSM()
	assert.Equal(t, 1, f.Size())
	assert.False(t, f.IsFinal(0))

	s := f.CreateState()
	assert.Equal(t, 1, s)
	f.Connect(0, s, 'a')
	f.SetFinal(s, true)

	assert.Equal(t, []int{1}, f.Destinations(0, 'a'))
	assert.Empty(t, f.Destinations(0, 'b'))
	assert.Equal(t, []int{1}, f.Finals())
	assert.False(t, f.IsDetermined())
}

func TestFSMConnectOutOfRange(t *testing.T) {
	f := NewFSM()
	assert.Panics(t, func() { f.Connect(0, 5, 'a') })
}

func TestFSMLetters(t *testing.T) {
	f := NewFSM()
	s := f.CreateState()
	f.Connect(0, s, 'a')

	letters := f.Letters()
	assert.Equal(t, 2, letters.Size())
	assert.Equal(t, []Char{'a'}, letters.ClassOf('a').Members)
	assert.Equal(t, 255, len(letters.ClassOf('b').Members))
	assert.Equal(t, letters.Index('b'), letters.Index('z'))

	// Mutation drops the memoized partition; 'b' now behaves like 'a'.
	f.Connect(0, s, 'b')
	letters = f.Letters()
	assert.Equal(t, 2, letters.Size())
	assert.Equal(t, []Char{'a', 'b'}, letters.ClassOf('a').Members)
}

func TestFSMEpsilonRemoval(t *testing.T) {
	f := NewFSM()
	mid := f.CreateState()
	fin := f.CreateState()
	f.ConnectEpsilon(0, mid)
	f.Connect(mid, fin, 'a')
	f.SetFinal(fin, true)
	f.SetTag(mid, 4)

	f.RemoveEpsilons()

	assert.Equal(t, []int{2}, f.Destinations(0, 'a'))
	assert.Empty(t, f.Destinations(0, Epsilon))
	assert.Equal(t, 4, f.Tag(0))
	assert.False(t, f.IsFinal(0))
}

func TestFSMEpsilonClosureFinality(t *testing.T) {
	// A state that epsilon-reaches a final state becomes final itself.
	f := NewFSM()
	fin := f.CreateState()
	f.ConnectEpsilon(0, fin)
	f.SetFinal(fin, true)

	f.RemoveEpsilons()
	assert.True(t, f.IsFinal(0))
}

// endsWithA builds the NFA of §subset construction: q0 --a--> {q0, q1},
// q0 --b--> q0, q1 final.
func endsWithA() *FSM {
	f := NewFSM()
	q1 := f.CreateState()
	f.Connect(0, 0, 'a')
	f.Connect(0, q1, 'a')
	f.Connect(0, 0, 'b')
	f.SetFinal(q1, true)
	return f
}

func TestFSMDetermine(t *testing.T) {
	f := endsWithA()
	require.NoError(t, f.Determine(100))

	assert.True(t, f.IsDetermined())
	// Subsets {q0}, {q0,q1}, and the dead subset for symbols outside {a,b}.
	assert.Equal(t, 3, f.Size())
	assert.False(t, f.IsFinal(0))

	assert.True(t, Run(f, "a"))
	assert.True(t, Run(f, "ba"))
	assert.True(t, Run(f, "abba"))
	assert.False(t, Run(f, ""))
	assert.False(t, Run(f, "ab"))
	assert.False(t, Run(f, "ca"))
}

func TestFSMDetermineBudget(t *testing.T) {
	f := endsWithA()
	clone := f.Clone()

	err := f.Determine(0)
	assert.ErrorIs(t, err, ErrTooManyStates)
	// The machine is untouched on failure.
	assert.Equal(t, clone.Size(), f.Size())
	assert.False(t, f.IsDetermined())
}

func TestFSMMinimize(t *testing.T) {
	// 0 --a--> 1 and 0 --b--> 2, both targets final. After determinization
	// the two final subsets are equivalent and must collapse.
	f := NewFSM()
	s1 := f.CreateState()
	s2 := f.CreateState()
	f.Connect(0, s1, 'a')
	f.Connect(0, s2, 'b')
	f.SetFinal(s1, true)
	f.SetFinal(s2, true)

	require.NoError(t, f.Determine(100))
	assert.Equal(t, 4, f.Size()) // {0}, {1}, {2}, dead

	require.NoError(t, f.Minimize())
	assert.Equal(t, 3, f.Size())
	assert.True(t, f.IsDetermined())

	assert.True(t, Run(f, "a"))
	assert.True(t, Run(f, "b"))
	assert.False(t, Run(f, ""))
	assert.False(t, Run(f, "aa"))
}

func TestFSMMinimizeRequiresDetermined(t *testing.T) {
	f := endsWithA()
	assert.ErrorIs(t, f.Minimize(), ErrNotDetermined)
}

func TestFSMMinimizePreservesLanguage(t *testing.T) {
	f := endsWithA()
	require.NoError(t, f.Determine(100))
	require.NoError(t, f.Minimize())

	for _, tc := range []struct {
		input string
		want  bool
	}{
		{"a", true},
		{"bbba", true},
		{"", false},
		{"b", false},
		{"aab", false},
	} {
		assert.Equal(t, tc.want, Run(f, tc.input), "input %q", tc.input)
	}
}

func TestFSMTagsSurviveDetermine(t *testing.T) {
	f := NewFSM()
	s1 := f.CreateState()
	s2 := f.CreateState()
	f.Connect(0, s1, 'a')
	f.Connect(0, s2, 'a')
	f.SetFinal(s1, true)
	f.SetFinal(s2, true)
	f.SetTag(s1, 1)
	f.SetTag(s2, 2)

	require.NoError(t, f.Determine(100))

	// {s1, s2} collapses into one subset carrying the OR of both tags.
	found := false
	for s := 0; s < f.Size(); s++ {
		if f.IsFinal(s) {
			assert.Equal(t, 3, f.Tag(s))
			found = true
		}
	}
	assert.True(t, found)
}

func TestFSMTagsSplitMinimization(t *testing.T) {
	// Behaviorally identical final states with different tags stay apart.
	f := NewFSM()
	s1 := f.CreateState()
	s2 := f.CreateState()
	f.Connect(0, s1, 'a')
	f.Connect(0, s2, 'b')
	f.SetFinal(s1, true)
	f.SetFinal(s2, true)

	require.NoError(t, f.Determine(100))
	before := f.Size()

	g := f.Clone()
	require.NoError(t, g.Minimize())
	assert.Equal(t, before-1, g.Size())

	// Now distinguish the finals by payload.
	h := f.Clone()
	tag := 1
	for s := 0; s < h.Size(); s++ {
		if h.IsFinal(s) {
			h.SetTag(s, tag)
			tag++
		}
	}
	require.NoError(t, h.Minimize())
	assert.Equal(t, before, h.Size())
}

func TestFSMCombinators(t *testing.T) {
	t.Run("append", func(t *testing.T) {
		f := literalFSM('a')
		f.Append(literalFSM('b'))
		require.NoError(t, f.Determine(100))
		assert.True(t, Run(f, "ab"))
		assert.False(t, Run(f, "a"))
		assert.False(t, Run(f, "ba"))
	})

	t.Run("alternate", func(t *testing.T) {
		f := literalFSM('a')
		f.Alternate(literalFSM('b'))
		require.NoError(t, f.Determine(100))
		assert.True(t, Run(f, "a"))
		assert.True(t, Run(f, "b"))
		assert.False(t, Run(f, "ab"))
	})

	t.Run("iterate", func(t *testing.T) {
		f := literalFSM('a')
		f.Iterate()
		require.NoError(t, f.Determine(100))
		assert.True(t, Run(f, ""))
		assert.True(t, Run(f, "aaa"))
		assert.False(t, Run(f, "ab"))
	})

	t.Run("optional", func(t *testing.T) {
		f := literalFSM('a')
		f.Optional()
		require.NoError(t, f.Determine(100))
		assert.True(t, Run(f, ""))
		assert.True(t, Run(f, "a"))
		assert.False(t, Run(f, "aa"))
	})
}

func TestRunNonDetermined(t *testing.T) {
	f := endsWithA()
	assert.False(t, Run(f, "a"))
}
