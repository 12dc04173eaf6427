package memory

import (
	"context"
	"sync"

	"github.com/w-h-a/sales-insight/chatagent"
)

type memorySessions struct {
	turns map[string][]chatagent.Turn
	mtx   sync.RWMutex
}

func (s *memorySessions) Append(ctx context.Context, sessionId string, turns ...chatagent.Turn) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.turns[sessionId] = append(s.turns[sessionId], turns...)

	return nil
}

func (s *memorySessions) History(ctx context.Context, sessionId string) ([]chatagent.Turn, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	history := s.turns[sessionId]

	copied := make([]chatagent.Turn, len(history))
	copy(copied, history)

	return copied, nil
}

func (s *memorySessions) Clear(ctx context.Context, sessionId string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	// Clearing an unknown session is a no-op; the id stays usable.
	delete(s.turns, sessionId)

	return nil
}

func NewSessions() chatagent.Sessions {
	return &memorySessions{
		turns: map[string][]chatagent.Turn{},
		mtx:   sync.RWMutex{},
	}
}
