package channel

import (
	"context"
	"sync"
	"time"
)

const retryBase = 30 * time.Second

// runner owns the goroutine of a transport. It can be started again once the
// previous run has returned, either after Close or after the retry budget ran
// out.
type runner struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (l *runner) start(ctx context.Context, run func(ctx context.Context)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done != nil {
		select {
		case <-l.done:
		default:
			return false
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.cancel, l.done = cancel, done
	go func() {
		defer close(done)
		run(ctx)
	}()
	return true
}

// stop cancels the running loop and waits for it to return.
func (l *runner) stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel = nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// sleepCtx waits for d or until ctx is done. It reports whether the full
// delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// exponentialBackoff returns base * 2^retry, capped at limit.
func exponentialBackoff(base time.Duration, retry int, limit time.Duration) time.Duration {
	if retry < 0 {
		retry = 0
	}
	d := base
	for i := 0; i < retry; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	return min(d, limit)
}

// linearBackoff returns base * retry, capped at limit.
func linearBackoff(base time.Duration, retry int, limit time.Duration) time.Duration {
	if retry <= 0 || base <= 0 {
		return 0
	}
	if limit > 0 && time.Duration(retry) > limit/base {
		return limit
	}
	d := base * time.Duration(retry)
	if limit > 0 {
		return min(d, limit)
	}
	return d
}
