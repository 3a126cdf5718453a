package renderer

import (
	"fmt"
	"testing"

	"triangles_vk/model"

	vk "github.com/goki/vulkan"
	"github.com/go-gl/mathgl/mgl32"
)

func TestPrimitivesCopiesBeforeDrawing(t *testing.T) {
	e := newEngine(t, extent(800, 600))
	raw := cubeBytes()
	if err := e.geometry.Load(Triangles, raw); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := e.primitives.RecordFrame(0, 0, extent(800, 600)); err != nil {
		t.Fatalf("RecordFrame: %v", err)
	}
	ops := e.primRecs[0].ops
	barrier := indexOf(ops, "barrier")
	pass := indexOf(ops, "begin_pass")
	draw := indexOf(ops, "draw:36")
	if barrier < 0 || pass < 0 || draw < 0 {
		t.Fatalf("missing commands in %v", ops)
	}
	if !(indexOf(ops, "copy") < barrier && barrier < pass && pass < draw) {
		t.Errorf("expected copy, barrier, render pass, draw in that order, got %v", ops)
	}

	// The next frame draws without copying again.
	if _, err := e.primitives.RecordFrame(1, 1, extent(800, 600)); err != nil {
		t.Fatalf("RecordFrame: %v", err)
	}
	if n := count(e.primRecs[1].ops, "copy"); n != 0 {
		t.Errorf("%d copies recorded for a resident buffer", n)
	}
	if indexOf(e.primRecs[1].ops, "draw:36") < 0 {
		t.Errorf("resident triangles not drawn: %v", e.primRecs[1].ops)
	}
}

func TestPrimitivesDrawToggles(t *testing.T) {
	e := newEngine(t, extent(800, 600))
	box := model.BoxLines(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}, model.COLOR_BBOX)
	grid := model.NewGridLines(10, 2, model.COLOR_WIREMESH)
	if err := e.geometry.Load(BoundingBox, model.WireframeBytes(box)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := e.geometry.Load(BroadPhase, model.WireframeBytes(grid)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	boxDraw := fmt.Sprintf("draw:%d", len(box))
	gridDraw := fmt.Sprintf("draw:%d", len(grid))

	cases := []struct {
		bbox, broad bool
	}{
		{true, true},
		{true, false},
		{false, true},
		{false, false},
	}
	for _, c := range cases {
		e.params.DrawBoundingBoxes = c.bbox
		e.params.DrawBroadPhase = c.broad
		if _, err := e.primitives.RecordFrame(0, 0, extent(800, 600)); err != nil {
			t.Fatalf("RecordFrame: %v", err)
		}
		ops := e.primRecs[0].ops
		if got := indexOf(ops, boxDraw) >= 0; got != c.bbox {
			t.Errorf("bbox %v broad %v: bounding box drawn = %v", c.bbox, c.broad, got)
		}
		if got := indexOf(ops, gridDraw) >= 0; got != c.broad {
			t.Errorf("bbox %v broad %v: broad phase drawn = %v", c.bbox, c.broad, got)
		}
		if c.bbox && c.broad && indexOf(ops, boxDraw) > indexOf(ops, gridDraw) {
			t.Errorf("bounding boxes must be drawn before the broad phase: %v", ops)
		}
	}
}

func TestPrimitivesSkipEmptyScene(t *testing.T) {
	e := newEngine(t, extent(800, 600))
	cb, err := e.primitives.RecordFrame(1, 2, extent(800, 600))
	if err != nil {
		t.Fatalf("RecordFrame: %v", err)
	}
	if cb != e.primRecs[1].raw {
		t.Errorf("returned command buffer does not belong to slot 1")
	}
	for _, op := range e.primRecs[1].ops {
		if op == "copy" || op == "vertex_buffer" || len(op) > 5 && op[:5] == "draw:" {
			t.Errorf("empty scene recorded %q", op)
		}
	}
	if indexOf(e.primRecs[1].ops, "end_pass") < 0 {
		t.Errorf("render pass not closed: %v", e.primRecs[1].ops)
	}
}

type fakePainter struct {
	extents []vk.Extent2D
}

func (p *fakePainter) Paint(rec Recorder, extent vk.Extent2D) {
	p.extents = append(p.extents, extent)
	rec.Draw(3)
}

func TestOverlayAlwaysRecordsItsPass(t *testing.T) {
	e := newEngine(t, extent(640, 480))
	if _, err := e.overlay.RecordFrame(0, 1, extent(640, 480)); err != nil {
		t.Fatalf("RecordFrame: %v", err)
	}
	ops := e.overlayRecs[0].ops
	if indexOf(ops, "begin_pass") < 0 || indexOf(ops, "end_pass") < 0 {
		t.Fatalf("overlay pass missing without painter: %v", ops)
	}

	p := &fakePainter{}
	e.overlay.SetPainter(p)
	if _, err := e.overlay.RecordFrame(1, 0, extent(640, 480)); err != nil {
		t.Fatalf("RecordFrame: %v", err)
	}
	ops = e.overlayRecs[1].ops
	if len(p.extents) != 1 || p.extents[0] != extent(640, 480) {
		t.Errorf("painter called with %v", p.extents)
	}
	if !(indexOf(ops, "begin_pass") < indexOf(ops, "draw:3") && indexOf(ops, "draw:3") < indexOf(ops, "end_pass")) {
		t.Errorf("painter must draw inside the overlay pass: %v", ops)
	}
	if e.overlay.ImageCount() != 3 || e.overlay.MinImageCount() != 2 {
		t.Errorf("overlay tracks %d images (min %d)", e.overlay.ImageCount(), e.overlay.MinImageCount())
	}
}

func TestCorePainterRunsInEveryOverlayPass(t *testing.T) {
	e := newEngine(t, extent(800, 600))
	c := &Core{overlay: e.overlay}
	p := &fakePainter{}
	c.SetOverlayPainter(p)
	e.frames(t, 4)

	if len(p.extents) != 4 {
		t.Fatalf("painter ran %d times in 4 frames", len(p.extents))
	}
	for slot, rec := range e.overlayRecs {
		ops := rec.ops
		draw := indexOf(ops, "draw:3")
		if !(indexOf(ops, "begin_pass") < draw && draw < indexOf(ops, "end_pass")) {
			t.Errorf("slot %d: painter drew outside the overlay pass: %v", slot, ops)
		}
	}

	c.SetOverlayPainter(nil)
	e.frames(t, 1)
	if len(p.extents) != 4 {
		t.Errorf("cleared painter still ran")
	}
}

func TestFlippedViewport(t *testing.T) {
	vp := FlippedViewport(extent(800, 600))
	if vp.Y != 600 || vp.Height != -600 || vp.Width != 800 {
		t.Errorf("unexpected viewport %+v", vp)
	}
}

func TestHexToRGBA(t *testing.T) {
	got := HexToRGBA(0xff336600)
	want := mgl32.Vec4{1, 0.2, 0.4, 0}
	if !got.ApproxEqualThreshold(want, 1e-6) {
		t.Errorf("HexToRGBA(0xff336600) = %v, expected %v", got, want)
	}
	if HexToRGBA(0xffffffff) != (mgl32.Vec4{1, 1, 1, 1}) {
		t.Errorf("white is not opaque white")
	}
}

func TestBuildUniformFrame(t *testing.T) {
	p := DefaultParameters()
	p.Fov = 60
	p.RenderDistance = 1000
	cam := model.NewCamera(45, 1, 100)
	frame := BuildUniformFrame(cam, &p, extent(800, 600))
	if cam.Fov != 60 || cam.Far != 1000 {
		t.Errorf("camera not updated from parameters: fov %v far %v", cam.Fov, cam.Far)
	}
	if frame.Colors[model.COLOR_BBOX] != HexToRGBA(p.BboxColor) {
		t.Errorf("bbox color %v", frame.Colors[model.COLOR_BBOX])
	}
	if frame.Ambient != p.Ambient {
		t.Errorf("ambient %v, expected %v", frame.Ambient, p.Ambient)
	}
	if frame.ViewProjection != cam.ViewProjection(800, 600) {
		t.Errorf("view projection does not match the camera")
	}
}
