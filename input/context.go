// Package input tracks the state of monitored keys between frames. A Context is created by the application and
// handed to both the window (which feeds it) and the per-frame update (which polls it).
package input

import (
	"sync"

	"github.com/veandco/go-sdl2/sdl"
)

type ButtonState uint32

const (
	Idle ButtonState = iota
	HeldDown
	Pressed
)

func (b ButtonState) String() string {
	switch b {
	case Idle:
		return "idle"
	case HeldDown:
		return "held down"
	case Pressed:
		return "pressed"
	default:
		return "unknown"
	}
}

type trackedKey struct {
	current  ButtonState
	notifyOn ButtonState
}

type Context struct {
	mu   sync.Mutex
	keys map[sdl.Keycode]*trackedKey
}

func NewContext() *Context {
	return &Context{keys: make(map[sdl.Keycode]*trackedKey)}
}

// Monitor starts tracking key. Poll reports it whenever its state equals notifyOn.
func (c *Context) Monitor(key sdl.Keycode, notifyOn ButtonState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[key] = &trackedKey{current: Idle, notifyOn: notifyOn}
}

// HandleKey records a press or release. Keys that are not monitored are ignored.
func (c *Context) HandleKey(key sdl.Keycode, pressed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k, ok := c.keys[key]
	if !ok {
		return
	}
	if pressed {
		k.current = HeldDown
	} else {
		k.current = Pressed
	}
}

// Poll returns the keys currently in their notify state. A reported Pressed key goes back to Idle so a single
// release is only seen once.
func (c *Context) Poll() map[sdl.Keycode]ButtonState {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make(map[sdl.Keycode]ButtonState)
	for key, k := range c.keys {
		if k.current != k.notifyOn {
			continue
		}
		result[key] = k.current
		if k.current == Pressed {
			k.current = Idle
		}
	}
	return result
}
