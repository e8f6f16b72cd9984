package main

import (
	"context"
	"sync"
	"time"
)

// Activity is a periodic job run on the loop goroutine
type Activity struct {
	Name     string
	Interval time.Duration
	Run      func()
}

// Every returns the interval for a rate in Hz
func Every(hz int) time.Duration {
	if hz <= 0 {
		return 0
	}
	return time.Second / time.Duration(hz)
}

// Loop is a single-threaded dispatcher. Periodic activities and posted
// callbacks all run on the goroutine that called Run, one at a time, so the
// world they share never needs a lock.
type Loop struct {
	inbox chan func()
	fires chan func()

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	armed   []string
	stopped chan struct{}
	once    sync.Once
}

// NewLoop creates an idle loop
func NewLoop() *Loop {
	return &Loop{
		inbox:   make(chan func(), 256),
		fires:   make(chan func()),
		stopped: make(chan struct{}),
	}
}

// Run dispatches until ctx is done or Stop is called. Either way the loop
// counts as stopped afterwards and Post refuses new work.
func (l *Loop) Run(ctx context.Context) {
	defer l.Disarm()
	defer l.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopped:
			return
		case f := <-l.inbox:
			f()
		case f := <-l.fires:
			f()
		}
	}
}

// Stop ends Run
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.stopped) })
}

// Post queues f to run on the loop goroutine. It returns false if the loop
// has stopped. Safe to call from any goroutine.
func (l *Loop) Post(f func()) bool {
	select {
	case <-l.stopped:
		return false
	default:
	}
	select {
	case <-l.stopped:
		return false
	case l.inbox <- f:
		return true
	}
}

// Arm replaces the set of periodic activities. Every previously armed
// activity is stopped, and its goroutine has exited, before the new ones
// start, so two generations never tick concurrently. Safe to call from the
// loop goroutine itself.
func (l *Loop) Arm(acts ...Activity) {
	l.Disarm()

	l.mu.Lock()
	defer l.mu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.armed = l.armed[:0]
	for _, a := range acts {
		if a.Interval <= 0 || a.Run == nil {
			continue
		}
		l.armed = append(l.armed, a.Name)
		l.wg.Add(1)
		go l.tick(ctx, a)
	}
}

// Disarm stops all periodic activities and waits for them to exit
func (l *Loop) Disarm() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.armed = nil
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	l.wg.Wait()
}

// Armed returns the names of the running activities
func (l *Loop) Armed() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.armed...)
}

func (l *Loop) tick(ctx context.Context, a Activity) {
	defer l.wg.Done()
	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case l.fires <- a.Run:
			case <-ctx.Done():
				return
			}
		}
	}
}
