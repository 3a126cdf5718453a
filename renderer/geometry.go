package renderer

import (
	"triangles_vk/model"

	"github.com/pkg/errors"
)

// Category selects one of the vertex buffers the renderer draws.
type Category int

const (
	Triangles   Category = iota // filled, lit triangles
	BroadPhase                  // wire mesh of the broad phase cells
	BoundingBox                 // wire mesh of object bounding boxes

	categoryCount
)

// promotionOrder matches the draw order.
var promotionOrder = []Category{Triangles, BoundingBox, BroadPhase}

func (c Category) String() string {
	switch c {
	case Triangles:
		return "triangles"
	case BroadPhase:
		return "broad phase"
	case BoundingBox:
		return "bounding box"
	default:
		return "unknown category"
	}
}

func (c Category) Stride() uint32 {
	if c == Triangles {
		return model.TRIANGLE_VERTEX_STRIDE
	}
	return model.WIREFRAME_VERTEX_STRIDE
}

func (c Category) valid() bool {
	return c >= 0 && c < categoryCount
}

// Geometry holds one UploadableBuffer per category. Each category accepts a single Load for the lifetime of the
// process.
type Geometry struct {
	uploads *UploadPipeline
	buffers [categoryCount]*UploadableBuffer
}

func NewGeometry(uploads *UploadPipeline) *Geometry {
	g := &Geometry{uploads: uploads}
	for c := Category(0); c < categoryCount; c++ {
		g.buffers[c] = NewUploadableBuffer(c)
	}
	return g
}

// Load stages raw vertex bytes for the category. It may be called from any goroutine. Empty or misaligned data is
// rejected without using up the category.
func (g *Geometry) Load(c Category, raw []byte) error {
	if !c.valid() {
		return errors.Errorf("invalid geometry category %d", int(c))
	}
	if len(raw) == 0 {
		return &EmptyUploadError{Category: c}
	}
	stride := int(c.Stride())
	if len(raw)%stride != 0 {
		return errors.Wrapf(ErrMisalignedVertexData, "%s: %d bytes with stride %d", c, len(raw), stride)
	}
	return g.uploads.Stage(g.buffers[c], raw, uint32(len(raw)/stride))
}

// PromotePending promotes every STAGED category. Render thread only.
func (g *Geometry) PromotePending(rec TransferRecorder, slot int) error {
	for _, c := range promotionOrder {
		if _, err := g.uploads.Promote(rec, g.buffers[c], slot); err != nil {
			return err
		}
	}
	return nil
}

func (g *Geometry) Buffer(c Category) *UploadableBuffer {
	return g.buffers[c]
}

// Destroy releases all vertex buffers. The device must be idle.
func (g *Geometry) Destroy() {
	for _, b := range g.buffers {
		g.uploads.Release(b)
	}
}
