package handoff

import (
	"context"
	"sync"
)

// Sequencer serialises work per key. Keys are dropped once nobody holds or
// waits on them.
type Sequencer struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewSequencer creates an empty sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{slots: make(map[string]*slot)}
}

// Acquire blocks until key is free or ctx ends. A ctx that is already done
// always fails, even when the key is free. The returned release must be
// called exactly once.
func (s *Sequencer) Acquire(ctx context.Context, key string) (release func(), err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	sl, ok := s.slots[key]
	if !ok {
		sl = &slot{ch: make(chan struct{}, 1)}
		s.slots[key] = sl
	}
	sl.refs++
	s.mu.Unlock()

	select {
	case sl.ch <- struct{}{}:
	case <-ctx.Done():
		s.unref(key, sl)
		return nil, ctx.Err()
	}
	// both cases may have been ready
	if err := ctx.Err(); err != nil {
		<-sl.ch
		s.unref(key, sl)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-sl.ch
			s.unref(key, sl)
		})
	}, nil
}

func (s *Sequencer) unref(key string, sl *slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(s.slots, key)
	}
}

// Len returns the number of tracked keys.
func (s *Sequencer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}
