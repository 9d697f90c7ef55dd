package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecuteReturnsStdout(t *testing.T) {
	out, err := New().Execute(context.Background(), "sh", "-c", "printf hello")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "hello" {
		t.Fatalf("unexpected stdout %q", out)
	}
}

func TestExecuteIncludesStderrOnFailure(t *testing.T) {
	_, err := New().Execute(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestLastLines(t *testing.T) {
	if got := lastLines("a\nb\nc", 2); got != "b\nc" {
		t.Fatalf("unexpected tail %q", got)
	}
	if got := lastLines("a", 2); got != "a" {
		t.Fatalf("unexpected tail %q", got)
	}
}

type slowExecutor struct {
	running int32
	peak    int32
}

func (s *slowExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	cur := atomic.AddInt32(&s.running, 1)
	for {
		peak := atomic.LoadInt32(&s.peak)
		if cur <= peak || atomic.CompareAndSwapInt32(&s.peak, peak, cur) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	atomic.AddInt32(&s.running, -1)
	return "", nil
}

func TestLimitedCapsConcurrency(t *testing.T) {
	inner := &slowExecutor{}
	exec := Limited(inner, 2)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = exec.Execute(context.Background(), "x")
		}()
	}
	wg.Wait()

	if peak := atomic.LoadInt32(&inner.peak); peak > 2 {
		t.Fatalf("expected at most 2 concurrent commands, saw %d", peak)
	}
}

type blockingExecutor struct{ release chan struct{} }

func (b *blockingExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	<-b.release
	return "", nil
}

func TestLimitedHonoursContextWhileWaiting(t *testing.T) {
	inner := &blockingExecutor{release: make(chan struct{})}
	exec := Limited(inner, 1)

	done := make(chan struct{})
	go func() {
		_, _ = exec.Execute(context.Background(), "first")
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := exec.Execute(ctx, "second"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	close(inner.release)
	<-done
}
