package renderer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestShutdownGateWaitsForTeardown(t *testing.T) {
	var wakes atomic.Int32
	g := NewShutdownGate(func() { wakes.Add(1) })

	returned := make(chan struct{})
	go func() {
		g.RequestAndWait()
		close(returned)
	}()

	// The render thread notices the request on its next loop pass.
	deadline := time.Now().Add(5 * time.Second)
	for !g.Requested() {
		if time.Now().After(deadline) {
			t.Fatalf("stop request never arrived")
		}
		time.Sleep(time.Millisecond)
	}
	g.begin()
	select {
	case <-returned:
		t.Fatalf("hook returned before teardown finished")
	case <-time.After(20 * time.Millisecond):
	}
	g.finish()

	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatalf("hook still blocked after teardown finished")
	}
	if n := wakes.Load(); n != 1 {
		t.Errorf("event loop woken %d times, expected 1", n)
	}
}

func TestShutdownGateAfterTeardown(t *testing.T) {
	var wakes atomic.Int32
	g := NewShutdownGate(func() { wakes.Add(1) })
	g.begin()
	g.finish()
	g.finish()

	// The exit path runs the hook once more after a normal shutdown.
	g.RequestAndWait()
	if n := wakes.Load(); n != 0 {
		t.Errorf("event loop woken %d times after teardown began", n)
	}
	if !g.Requested() {
		t.Errorf("request not recorded")
	}
}

func TestShutdownGateWithoutWake(t *testing.T) {
	g := NewShutdownGate(nil)
	g.Request()
	if !g.Requested() {
		t.Fatalf("request not recorded")
	}
	g.finish()
	g.Wait()
}
