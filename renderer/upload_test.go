package renderer

import (
	"bytes"
	"hash/crc32"
	"sync/atomic"
	"testing"

	"triangles_vk/model"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

func cubeBytes() []byte {
	return model.TriangleBytes(model.NewCubeTriangles(mgl32.Vec3{}, 10, model.COLOR_REGULAR))
}

func TestLoadRejectsSecondLoad(t *testing.T) {
	g := NewGeometry(NewUploadPipeline(newFakeGPU(), MAX_FRAMES_IN_FLIGHT))
	if err := g.Load(Triangles, cubeBytes()); err != nil {
		t.Fatalf("first load: %v", err)
	}
	err := g.Load(Triangles, cubeBytes())
	var already *AlreadyLoadedError
	if !errors.As(err, &already) {
		t.Fatalf("expected *AlreadyLoadedError, got %v", err)
	}
	if already.Category != Triangles {
		t.Errorf("error names %s, expected %s", already.Category, Triangles)
	}
	if got := g.Buffer(Triangles).ElementCount(); got != 36 {
		t.Errorf("element count %d after rejected reload, expected 36", got)
	}
}

func TestLoadRejectsEmptyAndMisalignedData(t *testing.T) {
	g := NewGeometry(NewUploadPipeline(newFakeGPU(), MAX_FRAMES_IN_FLIGHT))

	var empty *EmptyUploadError
	if err := g.Load(BroadPhase, nil); !errors.As(err, &empty) {
		t.Errorf("nil data: expected *EmptyUploadError, got %v", err)
	}
	if err := g.Load(BroadPhase, []byte{}); !errors.As(err, &empty) {
		t.Errorf("empty data: expected *EmptyUploadError, got %v", err)
	}
	if err := g.Load(BroadPhase, make([]byte, 17)); !errors.Is(err, ErrMisalignedVertexData) {
		t.Errorf("17 bytes with stride 16: expected ErrMisalignedVertexData, got %v", err)
	}
	if err := g.Load(Category(42), make([]byte, 16)); err == nil {
		t.Errorf("unknown category should be rejected")
	}
	if s := g.Buffer(BroadPhase).State(); s != UploadEmpty {
		t.Fatalf("rejected data changed state to %s", s)
	}

	// Rejected data does not use up the category.
	lines := model.NewGridLines(100, 4, model.COLOR_WIREMESH)
	if err := g.Load(BroadPhase, model.WireframeBytes(lines)); err != nil {
		t.Fatalf("load after rejected data: %v", err)
	}
	if got := g.Buffer(BroadPhase).ElementCount(); got != uint32(len(lines)) {
		t.Errorf("element count %d, expected %d", got, len(lines))
	}
}

func TestPromoteIsIdempotent(t *testing.T) {
	gpu := newFakeGPU()
	p := NewUploadPipeline(gpu, MAX_FRAMES_IN_FLIGHT)
	buf := NewUploadableBuffer(Triangles)
	raw := cubeBytes()
	if err := p.Stage(buf, raw, 36); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if buf.Device() != nil {
		t.Errorf("staged buffer must not expose a device buffer")
	}
	if int(buf.ByteCount()) != len(raw) {
		t.Errorf("byte count %d, expected %d", buf.ByteCount(), len(raw))
	}

	_, recs := newFakeRecorders(gpu, 1)
	rec := recs[0]
	for i := 0; i < 3; i++ {
		did, err := p.Promote(rec, buf, 0)
		if err != nil {
			t.Fatalf("Promote %d: %v", i, err)
		}
		if did != (i == 0) {
			t.Errorf("Promote %d reported %v", i, did)
		}
	}
	if n := count(rec.history, "copy"); n != 1 {
		t.Errorf("%d copies recorded, expected 1", n)
	}
	if n := count(rec.history, "barrier"); n != 1 {
		t.Errorf("%d barriers recorded, expected 1", n)
	}
	if indexOf(rec.history, "copy") > indexOf(rec.history, "barrier") {
		t.Errorf("barrier recorded before copy: %v", rec.history)
	}
	if s := buf.State(); s != UploadResident {
		t.Fatalf("state %s, expected RESIDENT", s)
	}
	if got := crc32.ChecksumIEEE(gpu.bytes(buf.Device().Handle)); got != crc32.ChecksumIEEE(raw) {
		t.Errorf("device checksum %08x, expected %08x", got, crc32.ChecksumIEEE(raw))
	}
}

func TestStagingIsFreedAfterFenceWait(t *testing.T) {
	e := newEngine(t, extent(800, 600))
	if err := e.geometry.Load(Triangles, cubeBytes()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	staging := e.geometry.Buffer(Triangles).staging.Handle

	e.frames(t, 1) // slot 0 promotes
	if e.gpu.wasDestroyed(staging) {
		t.Fatalf("staging buffer freed while the copy may still be executing")
	}
	e.frames(t, 1) // slot 1
	if e.gpu.wasDestroyed(staging) {
		t.Fatalf("staging buffer freed by a different slot")
	}
	e.frames(t, 1) // slot 0 again, after its fence wait
	if !e.gpu.wasDestroyed(staging) {
		t.Errorf("staging buffer still alive after its slot's fence was waited on")
	}
}

func TestConcurrentLoadsBecomeResident(t *testing.T) {
	e := newEngine(t, extent(800, 600))
	tris := cubeBytes()
	box := model.WireframeBytes(model.BoxLines(mgl32.Vec3{-5, -5, -5}, mgl32.Vec3{5, 5, 5}, model.COLOR_BBOX))

	var eg errgroup.Group
	eg.Go(func() error { return e.geometry.Load(Triangles, tris) })
	eg.Go(func() error { return e.geometry.Load(BoundingBox, box) })
	if err := eg.Wait(); err != nil {
		t.Fatalf("concurrent load: %v", err)
	}

	e.frames(t, 2)
	for _, c := range []Category{Triangles, BoundingBox} {
		buf := e.geometry.Buffer(c)
		if s := buf.State(); s != UploadResident {
			t.Errorf("%s: state %s after two frames, expected RESIDENT", c, s)
			continue
		}
		want := tris
		if c == BoundingBox {
			want = box
		}
		if !bytes.Equal(e.gpu.bytes(buf.Device().Handle), want) {
			t.Errorf("%s: device bytes differ from the loaded bytes", c)
		}
	}
	if s := e.geometry.Buffer(BroadPhase).State(); s != UploadEmpty {
		t.Errorf("broad phase was never loaded but is %s", s)
	}
}

// Loads race against running frames: whatever a producer staged must be promoted with its bytes intact.
func TestLoadsWhileFramesRun(t *testing.T) {
	e := newEngine(t, extent(800, 600))
	loads := map[Category][]byte{
		Triangles:   cubeBytes(),
		BoundingBox: model.WireframeBytes(model.BoxLines(mgl32.Vec3{-5, -5, -5}, mgl32.Vec3{5, 5, 5}, model.COLOR_BBOX)),
		BroadPhase:  model.WireframeBytes(model.NewGridLines(100, 8, model.COLOR_WIREMESH)),
	}

	var eg errgroup.Group
	for c, raw := range loads {
		eg.Go(func() error { return e.geometry.Load(c, raw) })
	}
	e.frames(t, 50)
	if err := eg.Wait(); err != nil {
		t.Fatalf("concurrent load: %v", err)
	}
	// A load finishing after the last frame is promoted by the next one.
	e.frames(t, 1)

	for c, raw := range loads {
		buf := e.geometry.Buffer(c)
		if s := buf.State(); s != UploadResident {
			t.Errorf("%s: state %s, expected RESIDENT", c, s)
			continue
		}
		if !bytes.Equal(e.gpu.bytes(buf.Device().Handle), raw) {
			t.Errorf("%s: device bytes differ from the loaded bytes", c)
		}
	}
	if e.scheduler.PeakInFlight() > MAX_FRAMES_IN_FLIGHT {
		t.Errorf("peak of %d frames in flight", e.scheduler.PeakInFlight())
	}
}

func TestStageClaimsBufferOnce(t *testing.T) {
	p := NewUploadPipeline(newFakeGPU(), MAX_FRAMES_IN_FLIGHT)
	buf := NewUploadableBuffer(Triangles)
	raw := cubeBytes()

	var wins, rejects atomic.Int32
	var eg errgroup.Group
	for i := 0; i < 8; i++ {
		eg.Go(func() error {
			err := p.Stage(buf, raw, 36)
			var already *AlreadyLoadedError
			switch {
			case err == nil:
				wins.Add(1)
			case errors.As(err, &already):
				rejects.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if wins.Load() != 1 || rejects.Load() != 7 {
		t.Errorf("%d stages succeeded and %d were rejected, expected 1 and 7", wins.Load(), rejects.Load())
	}
	if s := buf.State(); s != UploadStaged {
		t.Errorf("state %s, expected STAGED", s)
	}
}

func TestFailedStageReleasesClaim(t *testing.T) {
	gpu := newFakeGPU()
	p := NewUploadPipeline(gpu, MAX_FRAMES_IN_FLIGHT)
	buf := NewUploadableBuffer(Triangles)
	gpu.failCreate = errors.New("out of host memory")
	if err := p.Stage(buf, cubeBytes(), 36); err == nil {
		t.Fatalf("expected Stage to fail")
	}
	if s := buf.State(); s != UploadEmpty {
		t.Fatalf("state %s after a failed stage, expected EMPTY", s)
	}
	if buf.ElementCount() != 0 || buf.ByteCount() != 0 {
		t.Errorf("failed stage left counts %d, %d", buf.ElementCount(), buf.ByteCount())
	}
	gpu.failCreate = nil
	if err := p.Stage(buf, cubeBytes(), 36); err != nil {
		t.Fatalf("Stage after failure: %v", err)
	}
}

func TestUniformStreamWritesSlotBuffer(t *testing.T) {
	gpu := newFakeGPU()
	u, err := NewUniformStream(gpu, MAX_FRAMES_IN_FLIGHT)
	if err != nil {
		t.Fatalf("NewUniformStream: %v", err)
	}
	p := DefaultParameters()
	frame := BuildUniformFrame(model.NewCamera(45, 1, 100), &p, extent(800, 600))
	u.Write(1, &frame)
	if !bytes.Equal(gpu.bytes(u.Buffer(1).Handle), frame.Bytes()) {
		t.Errorf("slot 1 buffer does not hold the written frame")
	}
	if bytes.Equal(gpu.bytes(u.Buffer(0).Handle), frame.Bytes()) {
		t.Errorf("slot 0 buffer was written as well")
	}
	u.Destroy()
	if u.Len() != 0 {
		t.Errorf("Len after Destroy = %d", u.Len())
	}
}

func TestUploadStateString(t *testing.T) {
	states := map[UploadState]string{
		UploadEmpty:     "EMPTY",
		UploadStaging:   "STAGING",
		UploadStaged:    "STAGED",
		UploadPromoting: "PROMOTING",
		UploadResident:  "RESIDENT",
		UploadState(9):  "UNKNOWN",
	}
	for s, want := range states {
		if s.String() != want {
			t.Errorf("%d.String() = %q, expected %q", int(s), s.String(), want)
		}
	}
}
