package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runLoop(t *testing.T) (*Loop, context.CancelFunc, <-chan struct{}) {
	t.Helper()
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l, cancel, done
}

func drain(t *testing.T, l *Loop) {
	t.Helper()
	done := make(chan struct{})
	require.True(t, l.Post(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not drain")
	}
}

func TestPostRunsInOrder(t *testing.T) {
	l, _, _ := runLoop(t)

	var got []int
	finished := make(chan struct{})
	for i := 0; i < 50; i++ {
		i := i
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	l.Post(func() { close(finished) })

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("posted callbacks never ran")
	}
	for i, v := range got {
		assert.Equal(t, i, v)
	}
	assert.Len(t, got, 50)
}

func TestArmReplacesActivities(t *testing.T) {
	l, _, _ := runLoop(t)

	var slow, fast atomic.Int32
	l.Arm(Activity{Name: "slow", Interval: 5 * time.Millisecond, Run: func() { slow.Add(1) }})
	assert.Equal(t, []string{"slow"}, l.Armed())

	require.Eventually(t, func() bool { return slow.Load() > 2 }, 2*time.Second, time.Millisecond)

	l.Arm(
		Activity{Name: "fast", Interval: 2 * time.Millisecond, Run: func() { fast.Add(1) }},
		Activity{Name: "off", Interval: 0, Run: func() {}},
	)
	assert.Equal(t, []string{"fast"}, l.Armed(), "zero-interval activities are skipped")

	// a fire handed over just before Arm may still be running; drain it
	drain(t, l)
	frozen := slow.Load()
	require.Eventually(t, func() bool { return fast.Load() > 5 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, frozen, slow.Load(), "old generation must not tick after Arm returns")
}

func TestArmFromInsideLoop(t *testing.T) {
	l, _, _ := runLoop(t)

	var hits atomic.Int32
	rearmed := make(chan struct{})
	l.Arm(Activity{Name: "first", Interval: 2 * time.Millisecond, Run: func() {
		l.Arm(Activity{Name: "second", Interval: 2 * time.Millisecond, Run: func() { hits.Add(1) }})
		close(rearmed)
	}})

	select {
	case <-rearmed:
	case <-time.After(2 * time.Second):
		t.Fatal("activity never fired")
	}
	require.Eventually(t, func() bool { return hits.Load() > 2 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, []string{"second"}, l.Armed())
}

func TestStopEndsRunAndDisarms(t *testing.T) {
	l, _, done := runLoop(t)
	l.Arm(Activity{Name: "frame", Interval: time.Millisecond, Run: func() {}})

	l.Post(l.Stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.Empty(t, l.Armed())
	assert.False(t, l.Post(func() {}))
	l.Stop()
}

func TestCancelledLoopRefusesPosts(t *testing.T) {
	l, cancel, done := runLoop(t)
	l.Arm(Activity{Name: "frame", Interval: time.Millisecond, Run: func() {}})

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Empty(t, l.Armed())

	// more posts than the inbox holds must not block
	refused := make(chan bool)
	go func() {
		ok := false
		for i := 0; i < 1000; i++ {
			ok = ok || l.Post(func() {})
		}
		refused <- !ok
	}()
	select {
	case r := <-refused:
		assert.True(t, r)
	case <-time.After(2 * time.Second):
		t.Fatal("Post blocked on a stopped loop")
	}
}

func TestEvery(t *testing.T) {
	assert.Equal(t, time.Second/60, Every(60))
	assert.Equal(t, time.Second, Every(1))
	assert.Zero(t, Every(0))
}
