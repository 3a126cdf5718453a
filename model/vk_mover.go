package model

import (
	"time"

	"triangles_vk/input"

	"github.com/veandco/go-sdl2/sdl"
)

// MOVER_KEYS lists the keys a Mover reads and the state each one is reported in.
var MOVER_KEYS = map[sdl.Keycode]input.ButtonState{
	sdl.K_w:      input.HeldDown,
	sdl.K_s:      input.HeldDown,
	sdl.K_a:      input.HeldDown,
	sdl.K_d:      input.HeldDown,
	sdl.K_SPACE:  input.HeldDown,
	sdl.K_c:      input.HeldDown,
	sdl.K_UP:     input.HeldDown,
	sdl.K_DOWN:   input.HeldDown,
	sdl.K_LEFT:   input.HeldDown,
	sdl.K_RIGHT:  input.HeldDown,
	sdl.K_q:      input.HeldDown,
	sdl.K_e:      input.HeldDown,
	sdl.K_LSHIFT: input.Pressed,
}

// Velocities are read on every Update, changes apply from the next frame on.
type Velocities struct {
	LinearVelocityRegular  float32 // units per second
	LinearVelocityModified float32
	AngularVelocity        float32 // degrees per second
}

// Mover applies the polled key state to a camera once per frame.
type Mover struct {
	Input  *input.Context
	Camera *Camera
	Speed  *Velocities

	fast bool
}

func NewMover(in *input.Context, cam *Camera, speed *Velocities) *Mover {
	for key, state := range MOVER_KEYS {
		in.Monitor(key, state)
	}
	return &Mover{Input: in, Camera: cam, Speed: speed}
}

func (m *Mover) Fast() bool {
	return m.fast
}

func (m *Mover) Update(dt time.Duration) {
	keys := m.Input.Poll()
	if keys[sdl.K_LSHIFT] == input.Pressed {
		m.fast = !m.fast
	}

	secs := float32(dt.Seconds())
	speed := m.Speed.LinearVelocityRegular
	if m.fast {
		speed = m.Speed.LinearVelocityModified
	}
	step := speed * secs
	turn := m.Speed.AngularVelocity * secs

	held := func(k sdl.Keycode) bool { return keys[k] == input.HeldDown }
	axis := func(pos sdl.Keycode, neg sdl.Keycode) float32 {
		var v float32
		if held(pos) {
			v++
		}
		if held(neg) {
			v--
		}
		return v
	}

	cam := m.Camera
	move := cam.Direction().Mul(axis(sdl.K_w, sdl.K_s)).
		Add(cam.Sideways().Mul(axis(sdl.K_d, sdl.K_a))).
		Add(cam.Up().Mul(axis(sdl.K_SPACE, sdl.K_c)))
	if move.Len() > 0 {
		cam.Translate(move.Mul(step))
	}

	if yaw := axis(sdl.K_LEFT, sdl.K_RIGHT); yaw != 0 {
		cam.Rotate(yaw*turn, cam.Up())
	}
	if pitch := axis(sdl.K_UP, sdl.K_DOWN); pitch != 0 {
		cam.Rotate(pitch*turn, cam.Sideways())
	}
	if roll := axis(sdl.K_e, sdl.K_q); roll != 0 {
		cam.Rotate(roll*turn, cam.Direction())
	}
}
