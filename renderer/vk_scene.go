package renderer

import (
	"triangles_vk/model"

	"github.com/go-gl/mathgl/mgl32"
)

// These functions are part of the rendering core but are split into their own file for logical separation. Their
// focus is the scene: the camera looking at it and the vertex data shown in it.

const CAMERA_NEAR = 1

func (c *Core) DefaultCam() {
	cam := model.NewCamera(c.Params.Fov, CAMERA_NEAR, c.Params.RenderDistance)
	cam.ProjectionType = model.CAM_PERSPECTIVE_PROJECTION
	cam.Translate(mgl32.Vec3{0, 0, -500})
	c.Cam = cam
}

// LoadTriangles hands the triangle soup to the upload pipeline. The slice must not be modified afterwards, its
// memory is staged as is.
func (c *Core) LoadTriangles(tris []model.TriangleVertex) error {
	return c.Load(Triangles, model.TriangleBytes(tris))
}

// LoadWireframe is LoadTriangles for the line categories.
func (c *Core) LoadWireframe(cat Category, lines []model.WireframeVertex) error {
	return c.Load(cat, model.WireframeBytes(lines))
}
