package executor

import "context"

type semaphore struct {
	ch chan struct{}
}

func newSemaphore(capacity int) *semaphore {
	if capacity <= 0 {
		capacity = 1
	}
	return &semaphore{ch: make(chan struct{}, capacity)}
}

func (s *semaphore) acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *semaphore) release() {
	<-s.ch
}

type limited struct {
	next Executor
	sem  *semaphore
}

// Limited wraps next so at most n commands run at once. Callers waiting for a
// slot give up when ctx is done.
func Limited(next Executor, n int) Executor {
	return &limited{next: next, sem: newSemaphore(n)}
}

func (l *limited) Execute(ctx context.Context, name string, args ...string) (string, error) {
	if err := l.sem.acquire(ctx); err != nil {
		return "", err
	}
	defer l.sem.release()
	return l.next.Execute(ctx, name, args...)
}
