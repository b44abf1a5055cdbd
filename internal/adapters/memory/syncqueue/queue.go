package syncqueue

import (
	"context"
	"sync"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/domain"
)

// Queue is an in-memory implementation of syncqueue.Queue. Pop returns the oldest pending trip.
type Queue struct {
	mu      sync.Mutex
	order   []domain.TripID
	pending map[domain.TripID]struct{}
}

func NewQueue() *Queue {
	return &Queue{pending: make(map[domain.TripID]struct{})}
}

func (q *Queue) Push(ctx context.Context, id domain.TripID) error {
	_ = ctx
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.pending[id]; ok {
		return nil
	}
	q.pending[id] = struct{}{}
	q.order = append(q.order, id)
	return nil
}

func (q *Queue) Pop(ctx context.Context) (domain.TripID, bool, error) {
	_ = ctx
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.order) == 0 {
		return "", false, nil
	}
	id := q.order[0]
	q.order = q.order[1:]
	delete(q.pending, id)
	return id, true, nil
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	_ = ctx
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order), nil
}
