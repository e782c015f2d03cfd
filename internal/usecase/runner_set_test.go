package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	busy   bool
	closed bool
}

func (f *fakeRunner) InFlight() bool { return f.busy }
func (f *fakeRunner) Close()         { f.closed = true }

func TestRunnerSet_EvictsLeastRecentlyUsed(t *testing.T) {
	s := newRunnerSet[*fakeRunner](2)
	a, b, c := &fakeRunner{}, &fakeRunner{}, &fakeRunner{}

	s.put("a", a)
	s.put("b", b)
	_, ok := s.get("a")
	require.True(t, ok)

	s.put("c", c)
	assert.Equal(t, 2, s.len())
	assert.True(t, b.closed, "b was least recently used")
	assert.False(t, a.closed)
	_, ok = s.get("b")
	assert.False(t, ok)
}

func TestRunnerSet_SkipsBusyRunners(t *testing.T) {
	s := newRunnerSet[*fakeRunner](2)
	a, b := &fakeRunner{busy: true}, &fakeRunner{}
	s.put("a", a)
	s.put("b", b)

	s.put("c", &fakeRunner{})
	assert.False(t, a.closed, "in-flight runner is never evicted")
	assert.True(t, b.closed)

	b2 := &fakeRunner{busy: true}
	s.entries["c"].r = b2
	s.put("d", &fakeRunner{})
	assert.Equal(t, 3, s.len(), "grows past the cap only while everything is busy")
}

func TestRunnerSet_DefaultCapAndCloseAll(t *testing.T) {
	s := newRunnerSet[*fakeRunner](0)
	assert.Equal(t, DefaultMaxKeyedRunners, s.max)

	a := &fakeRunner{}
	s.put("a", a)
	s.closeAll()
	assert.True(t, a.closed)
}
