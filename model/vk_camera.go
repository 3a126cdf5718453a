package model

import (
	"log"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	CAM_PERSPECTIVE_PROJECTION  = iota
	CAM_ORTHOGRAPHIC_PROJECTION = iota
)

// vulkanClip moves OpenGL style clip space depth [-1, 1] into Vulkan's [0, 1]. The y axis is handled by the flipped
// viewport used while recording.
var vulkanClip = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Camera is a free flying camera. Orientation is kept as a quaternion so repeated small rotations around local axes
// do not accumulate gimbal artifacts.
type Camera struct {
	ProjectionType int

	Fov  float32 // degrees
	Near float32
	Far  float32

	Pos         mgl32.Vec3
	Orientation mgl32.Quat
}

func NewCamera(fov float32, near float32, far float32) *Camera {
	return &Camera{
		ProjectionType: CAM_PERSPECTIVE_PROJECTION,
		Fov:            fov,
		Near:           near,
		Far:            far,
		Orientation:    mgl32.QuatIdent(),
	}
}

// Direction is the local forward axis (+z) in world space.
func (c *Camera) Direction() mgl32.Vec3 {
	return c.Orientation.Rotate(mgl32.Vec3{0, 0, 1})
}

func (c *Camera) Up() mgl32.Vec3 {
	return c.Orientation.Rotate(mgl32.Vec3{0, 1, 0})
}

func (c *Camera) Sideways() mgl32.Vec3 {
	return c.Orientation.Rotate(mgl32.Vec3{1, 0, 0})
}

// Translate moves the camera by v given in world coordinates.
func (c *Camera) Translate(v mgl32.Vec3) {
	c.Pos = c.Pos.Add(v)
}

// Rotate turns the camera by deg around an axis given in world coordinates.
func (c *Camera) Rotate(deg float32, axis mgl32.Vec3) {
	if axis.Len() == 0 {
		return
	}
	q := mgl32.QuatRotate(mgl32.DegToRad(deg), axis.Normalize())
	c.Orientation = q.Mul(c.Orientation).Normalize()
}

func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Pos, c.Pos.Add(c.Direction()), c.Up())
}

func (c *Camera) Projection(aspect float32) mgl32.Mat4 {
	switch c.ProjectionType {
	case CAM_PERSPECTIVE_PROJECTION:
		return vulkanClip.Mul4(mgl32.Perspective(mgl32.DegToRad(c.Fov), aspect, c.Near, c.Far))
	case CAM_ORTHOGRAPHIC_PROJECTION:
		return vulkanClip.Mul4(mgl32.Ortho(-aspect, aspect, -1, 1, c.Near, c.Far))
	default:
		log.Printf("Failed to select projection type, returning identity.")
		return mgl32.Ident4()
	}
}

// ViewProjection combines both matrices for a viewport of w x h pixels.
func (c *Camera) ViewProjection(w uint32, h uint32) mgl32.Mat4 {
	aspect := float32(1)
	if h != 0 {
		aspect = float32(w) / float32(h)
	}
	return c.Projection(aspect).Mul4(c.View())
}
