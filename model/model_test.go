package model

import (
	"math"
	"testing"
	"time"
	"unsafe"

	"triangles_vk/input"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"
)

func TestUniformFrameLayout(t *testing.T) {
	if got := unsafe.Sizeof(UniformFrame{}); got != uintptr(SizeOfUniformFrame()) {
		t.Fatalf("unsafe.Sizeof(UniformFrame) = %d, expected %d", got, SizeOfUniformFrame())
	}
	u := &UniformFrame{Ambient: 0.1}
	if got := len(u.Bytes()); got != int(SizeOfUniformFrame()) {
		t.Errorf("Bytes() returned %d bytes, expected %d", got, SizeOfUniformFrame())
	}
}

func TestVertexStrides(t *testing.T) {
	if TRIANGLE_VERTEX_STRIDE != 28 {
		t.Errorf("triangle stride %d, expected 28", TRIANGLE_VERTEX_STRIDE)
	}
	if WIREFRAME_VERTEX_STRIDE != 16 {
		t.Errorf("wireframe stride %d, expected 16", WIREFRAME_VERTEX_STRIDE)
	}
	attrs := TriangleAttributeDescriptions()
	if attrs[2].Offset != 24 {
		t.Errorf("color index offset %d, expected 24", attrs[2].Offset)
	}
	tris := NewCubeTriangles(mgl32.Vec3{}, 1, COLOR_REGULAR)
	if got := len(TriangleBytes(tris)); got != len(tris)*28 {
		t.Errorf("TriangleBytes length %d, expected %d", got, len(tris)*28)
	}
	if TriangleBytes(nil) != nil {
		t.Errorf("TriangleBytes(nil) should be nil")
	}
}

func TestLightDirection(t *testing.T) {
	cases := []struct {
		yaw, pitch float32
		want       mgl32.Vec4
	}{
		{0, 0, mgl32.Vec4{0, 0, 1, 0}},
		{90, 0, mgl32.Vec4{1, 0, 0, 0}},
		{0, 90, mgl32.Vec4{0, -1, 0, 0}},
	}
	for _, c := range cases {
		got := LightDirection(c.yaw, c.pitch)
		if !got.ApproxEqualThreshold(c.want, 1e-5) {
			t.Errorf("LightDirection(%v, %v) = %v, expected %v", c.yaw, c.pitch, got, c.want)
		}
	}
}

func TestCubeHasOutwardNormals(t *testing.T) {
	tris := NewCubeTriangles(mgl32.Vec3{10, 0, 0}, 2, COLOR_REGULAR)
	if len(tris) != 36 {
		t.Fatalf("expected 36 vertices, got %d", len(tris))
	}
	for i, v := range tris {
		if math.Abs(float64(v.Normal.Len())-1) > 1e-5 {
			t.Fatalf("vertex %d has non unit normal %v", i, v.Normal)
		}
	}
	min, max, ok := Bounds(tris)
	if !ok || !min.ApproxEqual(mgl32.Vec3{9, -1, -1}) || !max.ApproxEqual(mgl32.Vec3{11, 1, 1}) {
		t.Errorf("unexpected bounds %v %v", min, max)
	}
}

func TestBoxLinesAreTwelveAxisAlignedEdges(t *testing.T) {
	lines := BoxLines(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 2, 3}, COLOR_BBOX)
	if len(lines) != 24 {
		t.Fatalf("expected 24 vertices, got %d", len(lines))
	}
	for i := 0; i < len(lines); i += 2 {
		d := lines[i+1].Pos.Sub(lines[i].Pos)
		changed := 0
		for _, c := range d {
			if c != 0 {
				changed++
			}
		}
		if changed != 1 {
			t.Errorf("edge %d (%v -> %v) is not axis aligned", i/2, lines[i].Pos, lines[i+1].Pos)
		}
	}
}

func TestCameraRotationKeepsAxesOrthonormal(t *testing.T) {
	c := NewCamera(90, 0.1, 100)
	for i := 0; i < 100; i++ {
		c.Rotate(7, c.Up())
		c.Rotate(3, c.Sideways())
	}
	if d := c.Direction().Dot(c.Up()); math.Abs(float64(d)) > 1e-4 {
		t.Errorf("direction and up not orthogonal, dot %v", d)
	}
	vp := c.ViewProjection(800, 600)
	if vp == (mgl32.Mat4{}) {
		t.Errorf("view projection is zero")
	}
}

func TestMoverToggleAndMove(t *testing.T) {
	in := input.NewContext()
	cam := NewCamera(90, 0.1, 100)
	speed := &Velocities{LinearVelocityRegular: 1, LinearVelocityModified: 10, AngularVelocity: 30}
	m := NewMover(in, cam, speed)

	in.HandleKey(sdl.K_w, true)
	m.Update(time.Second)
	if !cam.Pos.ApproxEqual(mgl32.Vec3{0, 0, 1}) {
		t.Fatalf("expected camera at (0,0,1), got %v", cam.Pos)
	}

	in.HandleKey(sdl.K_LSHIFT, true)
	in.HandleKey(sdl.K_LSHIFT, false)
	m.Update(time.Second)
	if !m.Fast() {
		t.Fatalf("left shift should toggle fast movement")
	}
	if !cam.Pos.ApproxEqual(mgl32.Vec3{0, 0, 11}) {
		t.Errorf("expected camera at (0,0,11), got %v", cam.Pos)
	}

	// Velocities are live, a change shows up on the next update.
	speed.LinearVelocityModified = 100
	m.Update(time.Second)
	if !cam.Pos.ApproxEqual(mgl32.Vec3{0, 0, 111}) {
		t.Errorf("expected camera at (0,0,111) after raising the velocity, got %v", cam.Pos)
	}
}
