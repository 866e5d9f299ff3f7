package gpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"go.uber.org/multierr"
)

// ErrScopeClosed is returned when a resource is pushed after Close.
var ErrScopeClosed = errors.New("scope closed")

// Scope owns a stack of releasable resources. Close releases them in the
// reverse order they were pushed, so a scope filled in acquisition order
// tears down dependents before the things they depend on.
type Scope struct {
	mu      sync.Mutex
	entries []scopeEntry
	closed  bool
}

type scopeEntry struct {
	name    string
	release func() error
}

// Push registers release to run when the scope closes. Pushing onto a
// closed scope releases immediately and returns ErrScopeClosed, since the
// resource is gone by the time Push returns.
func (s *Scope) Push(name string, release func() error) error {
	s.mu.Lock()
	if !s.closed {
		s.entries = append(s.entries, scopeEntry{name: name, release: release})
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	err := fmt.Errorf("%w: %s released", ErrScopeClosed, name)
	return multierr.Append(err, release())
}

// Own registers h to be destroyed on dev when the scope closes.
func (s *Scope) Own(dev Device, h Handle) error {
	return s.Push(h.String(), func() error { return dev.Destroy(h) })
}

// Len returns the number of resources still held.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close releases every held resource, newest first. Every release runs
// even when an earlier one fails; the failures are combined. Close is
// idempotent.
func (s *Scope) Close() error {
	s.mu.Lock()
	entries := s.entries
	s.entries = nil
	s.closed = true
	s.mu.Unlock()

	var err error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		log.Debugf("releasing %s", e.name)
		if rerr := e.release(); rerr != nil {
			log.Errorf("failed to release %s: %v", e.name, rerr)
			err = multierr.Append(err, rerr)
		}
	}
	return err
}
