package usecase

// DefaultMaxKeyedRunners caps the per-key runners a dashboard keeps alive.
const DefaultMaxKeyedRunners = 256

type keyedRunner interface {
	InFlight() bool
	Close()
}

type runnerEntry[R keyedRunner] struct {
	r    R
	used uint64
}

// runnerSet holds per-key runners up to max entries. Adding past the cap closes
// and drops the least recently used runner that is not in flight. Callers hold
// their own lock.
type runnerSet[R keyedRunner] struct {
	max     int
	seq     uint64
	entries map[string]*runnerEntry[R]
}

func newRunnerSet[R keyedRunner](limit int) *runnerSet[R] {
	if limit <= 0 {
		limit = DefaultMaxKeyedRunners
	}
	return &runnerSet[R]{max: limit, entries: make(map[string]*runnerEntry[R])}
}

func (s *runnerSet[R]) get(key string) (R, bool) {
	e, ok := s.entries[key]
	if !ok {
		var zero R
		return zero, false
	}
	s.seq++
	e.used = s.seq
	return e.r, true
}

func (s *runnerSet[R]) put(key string, r R) {
	for len(s.entries) >= s.max {
		if !s.evictOne() {
			// every runner is busy; the set shrinks again once they settle
			break
		}
	}
	s.seq++
	s.entries[key] = &runnerEntry[R]{r: r, used: s.seq}
}

func (s *runnerSet[R]) evictOne() bool {
	victim := ""
	var oldest uint64
	for k, e := range s.entries {
		if e.r.InFlight() {
			continue
		}
		if victim == "" || e.used < oldest {
			victim, oldest = k, e.used
		}
	}
	if victim == "" {
		return false
	}
	s.entries[victim].r.Close()
	delete(s.entries, victim)
	return true
}

func (s *runnerSet[R]) len() int {
	return len(s.entries)
}

func (s *runnerSet[R]) closeAll() {
	for _, e := range s.entries {
		e.r.Close()
	}
}
