package application

import (
	"context"

	"golang.org/x/sync/semaphore"
)

const defaultClaimWorkers = 8

// ClaimPool runs fire-and-forget gateway work off the presence delivery path,
// with at most size tasks in flight.
type ClaimPool struct {
	size int64
	sem  *semaphore.Weighted
}

func NewClaimPool(size int) *ClaimPool {
	if size <= 0 {
		size = defaultClaimWorkers
	}
	return &ClaimPool{size: int64(size), sem: semaphore.NewWeighted(int64(size))}
}

// TrySubmit starts task in the background and returns true, or returns false
// without blocking when the pool is saturated or closed.
func (p *ClaimPool) TrySubmit(task func()) bool {
	if !p.sem.TryAcquire(1) {
		return false
	}
	go func() {
		defer p.sem.Release(1)
		task()
	}()
	return true
}

// Close blocks new submissions and waits for running tasks.
func (p *ClaimPool) Close(ctx context.Context) error {
	return p.sem.Acquire(ctx, p.size)
}
