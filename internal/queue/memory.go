package queue

import (
	"context"
	"sync"
	"time"

	"manimq/internal/task"
)

// MemoryStore is an in-process Store used by tests and local development.
// It mirrors the redis store's semantics: FIFO pending list, atomic pop,
// best-effort event delivery.
type MemoryStore struct {
	mu      sync.Mutex
	tasks   map[string]*task.Task
	order   []string
	pending []string
	// arrival is closed and replaced on every push so all blocked
	// poppers re-check the list.
	arrival chan struct{}
	subs    []chan Event
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:   make(map[string]*task.Task),
		arrival: make(chan struct{}),
	}
}

func (s *MemoryStore) CreateTask(_ context.Context, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tasks[t.ID] = &cp
	s.order = append(s.order, t.ID)
	return nil
}

func (s *MemoryStore) GetTask(_ context.Context, id string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	if t.Result != nil {
		res := *t.Result
		cp.Result = &res
	}
	return &cp, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, st task.Status, result *task.RenderResult, errMsg string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return false, nil
	}
	t.Status = st
	if result != nil {
		res := *result
		t.Result = &res
	}
	if errMsg != "" {
		t.Error = errMsg
	}
	return true, nil
}

func (s *MemoryStore) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) TaskIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out, nil
}

func (s *MemoryStore) PushPending(_ context.Context, id string) error {
	s.mu.Lock()
	s.pending = append(s.pending, id)
	close(s.arrival)
	s.arrival = make(chan struct{})
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) PopPending(ctx context.Context, timeout time.Duration) (string, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		s.mu.Lock()
		if len(s.pending) > 0 {
			id := s.pending[0]
			s.pending = s.pending[1:]
			s.mu.Unlock()
			return id, nil
		}
		arrival := s.arrival
		s.mu.Unlock()

		select {
		case <-arrival:
		case <-deadline.C:
			return "", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (s *MemoryStore) TryPopPending(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return "", nil
	}
	id := s.pending[0]
	s.pending = s.pending[1:]
	return id, nil
}

func (s *MemoryStore) Publish(_ context.Context, ev Event) error {
	s.mu.Lock()
	subs := make([]chan Event, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			// Slow subscribers lose events, same as redis pub/sub.
		}
	}
	return nil
}

// Subscribe registers a live event listener. The returned cancel
// function detaches it.
func (s *MemoryStore) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, c := range s.subs {
			if c == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
	return ch, cancel
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// PendingLen reports the number of queued-but-unclaimed IDs.
func (s *MemoryStore) PendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
