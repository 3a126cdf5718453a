package renderer

import (
	"sync"
	"sync/atomic"
)

// ShutdownGate lets other goroutines, e.g. a signal handler, stop the render loop. Teardown itself stays on the
// render thread; Wait returns once it is complete.
type ShutdownGate struct {
	requested atomic.Bool

	mu      sync.Mutex
	wake    func()
	closing bool

	finished sync.Once
	done     chan struct{}
}

// NewShutdownGate takes a function that interrupts a blocking event wait on the render thread. It may be nil.
func NewShutdownGate(wake func()) *ShutdownGate {
	return &ShutdownGate{wake: wake, done: make(chan struct{})}
}

// Request asks the render loop to stop. wake is not called anymore once teardown has begun.
func (g *ShutdownGate) Request() {
	g.requested.Store(true)
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.closing && g.wake != nil {
		g.wake()
	}
}

func (g *ShutdownGate) Requested() bool {
	return g.requested.Load()
}

// Wait blocks until the render thread finished its teardown.
func (g *ShutdownGate) Wait() {
	<-g.done
}

func (g *ShutdownGate) RequestAndWait() {
	g.Request()
	g.Wait()
}

// begin and finish bracket the teardown on the render thread.
func (g *ShutdownGate) begin() {
	g.mu.Lock()
	g.closing = true
	g.mu.Unlock()
}

func (g *ShutdownGate) finish() {
	g.finished.Do(func() { close(g.done) })
}
