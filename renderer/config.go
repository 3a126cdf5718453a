package renderer

import (
	"triangles_vk/model"

	"github.com/go-gl/mathgl/mgl32"
)

const PROGRAM_NAME = "Triangles"
const WINDOW_WIDTH, WINDOW_HEIGHT int32 = 1280, 720
const MAX_FRAMES_IN_FLIGHT = 2

const (
	TRIANGLES_VERT_SHADER = "shaders_spv/triangles.vert.spv"
	TRIANGLES_FRAG_SHADER = "shaders_spv/triangles.frag.spv"
	WIREFRAME_VERT_SHADER = "shaders_spv/wireframe.vert.spv"
	WIREFRAME_FRAG_SHADER = "shaders_spv/wireframe.frag.spv"
)

// Parameters are the knobs of a running renderer. Colors are 0xRRGGBBAA.
type Parameters struct {
	model.Velocities

	RenderDistance float32
	Fov            float32 // degrees

	LightYaw   float32 // degrees
	LightPitch float32
	Ambient    float32
	LightColor uint32

	ClearColor     uint32
	RegularColor   uint32
	IntersectColor uint32
	WiremeshColor  uint32
	BboxColor      uint32

	DrawBroadPhase    bool
	DrawBoundingBoxes bool
}

func DefaultParameters() Parameters {
	return Parameters{
		Velocities: model.Velocities{
			LinearVelocityRegular:  500,
			LinearVelocityModified: 5000,
			AngularVelocity:        30,
		},
		RenderDistance: 30000,
		Fov:            90,
		LightYaw:       0,
		LightPitch:     0,
		Ambient:        0.1,
		LightColor:     0xffffffff,
		ClearColor:     0x181818ff,
		RegularColor:   0x89c4e1ff,
		IntersectColor: 0xff4c29ff,
		WiremeshColor:  0x2f363aff,
		BboxColor:      0x338568ff,
	}
}

// HexToRGBA splits 0xRRGGBBAA into channels in [0, 1].
func HexToRGBA(c uint32) mgl32.Vec4 {
	return mgl32.Vec4{
		float32(c>>24&0xff) / 255,
		float32(c>>16&0xff) / 255,
		float32(c>>8&0xff) / 255,
		float32(c&0xff) / 255,
	}
}
