// Package stl reads binary STL files into triangle vertices.
package stl

import (
	"bytes"
	"encoding/binary"
	"log"
	"math"
	"os"

	"triangles_vk/model"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

const (
	HEADER_SIZE   = 80
	TRIANGLE_SIZE = 50 // normal, 3 corners, 2 byte attribute
)

var ErrAsciiStl = errors.New("ascii stl files are not supported")

// ReadStlFile reads a binary STL file. Stored normals are ignored in favour of the face normal computed from the
// corner winding since many exporters leave them zeroed.
func ReadStlFile(path string, colorIndex uint32) ([]model.TriangleVertex, error) {
	log.Printf("Reading stl file %s", path)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	v, err := Parse(b, colorIndex)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	log.Printf("Successfully read stl file, Triangle Count: %d, Triangle memory size: %d KiB", len(v)/3, len(b[HEADER_SIZE:])/1024)
	return v, nil
}

func Parse(b []byte, colorIndex uint32) ([]model.TriangleVertex, error) {
	if len(b) < HEADER_SIZE+4 {
		if bytes.HasPrefix(bytes.TrimSpace(b), []byte("solid")) {
			return nil, ErrAsciiStl
		}
		return nil, errors.Errorf("file too short for a binary stl header: %d bytes", len(b))
	}
	tCnt := binary.LittleEndian.Uint32(b[HEADER_SIZE : HEADER_SIZE+4])
	body := b[HEADER_SIZE+4:]
	if uint64(len(body)) != uint64(tCnt)*TRIANGLE_SIZE {
		// ascii files start with "solid" but so do some binary headers, the size check decides
		if bytes.HasPrefix(b, []byte("solid")) {
			return nil, ErrAsciiStl
		}
		return nil, errors.Errorf("header announces %d triangles but body holds %d bytes", tCnt, len(body))
	}

	v := make([]model.TriangleVertex, 0, tCnt*3)
	for i := 0; i+TRIANGLE_SIZE <= len(body); i += TRIANGLE_SIZE {
		v1 := toVec3(body[i+12 : i+24])
		v2 := toVec3(body[i+24 : i+36])
		v3 := toVec3(body[i+36 : i+48])
		v = append(v, model.Triangle(v1, v2, v3, colorIndex)...)
	}
	return v, nil
}

// BoundingBoxWireframe returns the edges of the axis aligned box around the triangles, nil if there are none.
func BoundingBoxWireframe(tris []model.TriangleVertex, colorIndex uint32) []model.WireframeVertex {
	min, max, ok := model.Bounds(tris)
	if !ok {
		return nil
	}
	return model.BoxLines(min, max, colorIndex)
}

func toVec3(b []byte) mgl32.Vec3 {
	return mgl32.Vec3{
		toFloat32(b[:4]),
		toFloat32(b[4:8]),
		toFloat32(b[8:12]),
	}
}

func toFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
