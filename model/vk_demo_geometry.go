package model

import "github.com/go-gl/mathgl/mgl32"

// Demo geometry shown when no STL file is given on the command line.

var cubeCorners = []mgl32.Vec3{
	{-0.5, -0.5, -0.5}, // [0]
	{0.5, -0.5, -0.5},  // [1]
	{0.5, 0.5, -0.5},   // [2]
	{-0.5, 0.5, -0.5},  // [3]
	{-0.5, -0.5, 0.5},  // [4]
	{0.5, -0.5, 0.5},   // [5]
	{0.5, 0.5, 0.5},    // [6]
	{-0.5, 0.5, 0.5},   // [7]
}

var cubeIndices = []uint32{
	2, 1, 0, 0, 3, 2, // front
	5, 1, 6, 1, 2, 6, // right
	4, 5, 6, 7, 4, 6, // back
	4, 7, 0, 0, 7, 3, // left
	0, 1, 5, 5, 4, 0, // top
	3, 7, 6, 2, 3, 6, // bottom
}

// NewCubeTriangles returns a cube of edge length size centered at center. Vertices are not shared between faces so
// each corner carries its face normal.
func NewCubeTriangles(center mgl32.Vec3, size float32, colorIndex uint32) []TriangleVertex {
	out := make([]TriangleVertex, 0, len(cubeIndices))
	for i := 0; i+2 < len(cubeIndices); i += 3 {
		a := cubeCorners[cubeIndices[i]].Mul(size).Add(center)
		b := cubeCorners[cubeIndices[i+1]].Mul(size).Add(center)
		c := cubeCorners[cubeIndices[i+2]].Mul(size).Add(center)
		out = append(out, Triangle(a, b, c, colorIndex)...)
	}
	return out
}

// Triangle builds the three vertices of a triangle with the face normal of (b-a)x(c-a).
func Triangle(a, b, c mgl32.Vec3, colorIndex uint32) []TriangleVertex {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Len() > 0 {
		n = n.Normalize()
	}
	return []TriangleVertex{
		{Pos: a, Normal: n, ColorIndex: colorIndex},
		{Pos: b, Normal: n, ColorIndex: colorIndex},
		{Pos: c, Normal: n, ColorIndex: colorIndex},
	}
}

// NewGridLines returns a square grid of cells x cells lines in the y = 0 plane spanning [-extent, extent].
func NewGridLines(extent float32, cells int, colorIndex uint32) []WireframeVertex {
	if cells <= 0 {
		return nil
	}
	out := make([]WireframeVertex, 0, 4*(cells+1))
	step := 2 * extent / float32(cells)
	for i := 0; i <= cells; i++ {
		p := -extent + float32(i)*step
		out = append(out,
			WireframeVertex{Pos: mgl32.Vec3{p, 0, -extent}, ColorIndex: colorIndex},
			WireframeVertex{Pos: mgl32.Vec3{p, 0, extent}, ColorIndex: colorIndex},
			WireframeVertex{Pos: mgl32.Vec3{-extent, 0, p}, ColorIndex: colorIndex},
			WireframeVertex{Pos: mgl32.Vec3{extent, 0, p}, ColorIndex: colorIndex},
		)
	}
	return out
}

// BoxLines returns the 12 edges of the axis aligned box [min, max] as a line list.
func BoxLines(min, max mgl32.Vec3, colorIndex uint32) []WireframeVertex {
	corner := func(x, y, z bool) WireframeVertex {
		p := min
		if x {
			p[0] = max[0]
		}
		if y {
			p[1] = max[1]
		}
		if z {
			p[2] = max[2]
		}
		return WireframeVertex{Pos: p, ColorIndex: colorIndex}
	}
	out := make([]WireframeVertex, 0, 24)
	for _, a := range []bool{false, true} {
		for _, b := range []bool{false, true} {
			out = append(out,
				corner(false, a, b), corner(true, a, b),
				corner(a, false, b), corner(a, true, b),
				corner(a, b, false), corner(a, b, true),
			)
		}
	}
	return out
}

// Bounds returns the axis aligned bounds of the given triangles. ok is false for an empty slice.
func Bounds(tris []TriangleVertex) (min mgl32.Vec3, max mgl32.Vec3, ok bool) {
	if len(tris) == 0 {
		return min, max, false
	}
	min, max = tris[0].Pos, tris[0].Pos
	for _, v := range tris[1:] {
		for i := 0; i < 3; i++ {
			if v.Pos[i] < min[i] {
				min[i] = v.Pos[i]
			}
			if v.Pos[i] > max[i] {
				max[i] = v.Pos[i]
			}
		}
	}
	return min, max, true
}
