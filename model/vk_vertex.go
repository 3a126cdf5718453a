package model

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/go-gl/mathgl/mgl32"
)

// TriangleVertex is a filled triangle corner. All three corners of a triangle carry the face normal.
type TriangleVertex struct {
	Pos        mgl32.Vec3
	Normal     mgl32.Vec3
	ColorIndex uint32
}

// WireframeVertex is one end of a line segment.
type WireframeVertex struct {
	Pos        mgl32.Vec3
	ColorIndex uint32
}

var (
	TRIANGLE_VERTEX_STRIDE  = uint32(unsafe.Sizeof(TriangleVertex{}))
	WIREFRAME_VERTEX_STRIDE = uint32(unsafe.Sizeof(WireframeVertex{}))
)

func TriangleBindingDescription() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    TRIANGLE_VERTEX_STRIDE,
		InputRate: vk.VertexInputRateVertex,
	}
}

func TriangleAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Location: 0,
			Binding:  0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(TriangleVertex{}.Pos)),
		},
		{
			Location: 1,
			Binding:  0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(TriangleVertex{}.Normal)),
		},
		{
			Location: 2,
			Binding:  0,
			Format:   vk.FormatR32Uint,
			Offset:   uint32(unsafe.Offsetof(TriangleVertex{}.ColorIndex)),
		},
	}
}

func WireframeBindingDescription() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    WIREFRAME_VERTEX_STRIDE,
		InputRate: vk.VertexInputRateVertex,
	}
}

func WireframeAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Location: 0,
			Binding:  0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(WireframeVertex{}.Pos)),
		},
		{
			Location: 1,
			Binding:  0,
			Format:   vk.FormatR32Uint,
			Offset:   uint32(unsafe.Offsetof(WireframeVertex{}.ColorIndex)),
		},
	}
}

// TriangleBytes drops the type of the vertex slice so it can be handed to the upload pipeline. The result aliases
// the input.
func TriangleBytes(v []TriangleVertex) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*int(TRIANGLE_VERTEX_STRIDE))
}

func WireframeBytes(v []WireframeVertex) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*int(WIREFRAME_VERTEX_STRIDE))
}
