package lifecycle

import (
	"sync"

	"github.com/vietdv277/cirrus/pkg/types"
)

// states tracks in-flight and failed transitions of this process.
// Clusters without an entry are ready when their directory exists.
type states struct {
	mu sync.RWMutex
	m  map[string]types.ClusterState
}

func newStates() *states {
	return &states{m: make(map[string]types.ClusterState)}
}

func (s *states) set(name string, st types.ClusterState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[name] = st
}

func (s *states) clear(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, name)
}

func (s *states) get(name string) (types.ClusterState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.m[name]
	return st, ok
}
