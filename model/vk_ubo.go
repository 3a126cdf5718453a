package model

import (
	"triangles_vk/common"

	vk "github.com/goki/vulkan"
	"github.com/go-gl/mathgl/mgl32"
)

// Indices into UniformFrame.Colors, the vertex shader selects the color by the vertex' ColorIndex.
const (
	COLOR_REGULAR   = 0
	COLOR_INTERSECT = 1
	COLOR_WIREMESH  = 2
	COLOR_BBOX      = 3
)

// UniformFrame is rewritten for every frame. Field order and padding follow std140 so the struct can be copied
// as is.
type UniformFrame struct {
	ViewProjection mgl32.Mat4
	Colors         [4]mgl32.Vec4
	LightColor     mgl32.Vec4
	LightDir       mgl32.Vec4
	Ambient        float32
	_              [3]float32
}

// SizeOfUniformFrame is 64 + 4*16 + 16 + 16 + 16 bytes.
func SizeOfUniformFrame() vk.DeviceSize {
	return vk.DeviceSize(176)
}

func (u *UniformFrame) Bytes() []byte {
	return common.RawBytes(u)
}

// LightDirection rotates the +z axis by yaw around y and then by pitch around x, both in degrees.
func LightDirection(yaw float32, pitch float32) mgl32.Vec4 {
	rot := mgl32.HomogRotate3DY(mgl32.DegToRad(yaw)).Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(pitch)))
	return rot.Mul4x1(mgl32.Vec4{0, 0, 1, 0})
}
