package renderer

import (
	"fmt"
	"sync"
	"time"
	"unsafe"

	"triangles_vk/common"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// Handles only need to be unique and non nil, nothing dereferences them.
var (
	handleMu   sync.Mutex
	handleKeep []*byte
)

func newPtr() unsafe.Pointer {
	handleMu.Lock()
	defer handleMu.Unlock()
	b := new(byte)
	handleKeep = append(handleKeep, b)
	return unsafe.Pointer(b)
}

func newFence() vk.Fence                 { return vk.Fence(newPtr()) }
func newSemaphore() vk.Semaphore         { return vk.Semaphore(newPtr()) }
func newBufferHandle() vk.Buffer         { return vk.Buffer(newPtr()) }
func newCommandBuffer() vk.CommandBuffer { return vk.CommandBuffer(newPtr()) }
func newFramebuffer() vk.Framebuffer     { return vk.Framebuffer(newPtr()) }
func newPipeline() vk.Pipeline           { return vk.Pipeline(newPtr()) }
func newQueue() vk.Queue                 { return vk.Queue(newPtr()) }

type fakeFence struct {
	signaled bool
	pending  bool
}

// fakeGPU completes a submission when its fence is waited on or when the device is idled. Waiting on a fence that is
// neither signaled nor pending is reported as a deadlock.
type fakeGPU struct {
	mu sync.Mutex

	queue      vk.Queue
	fences     map[vk.Fence]*fakeFence
	semaphores map[vk.Semaphore]bool
	memory     map[vk.Buffer][]byte
	destroyed  map[vk.Buffer]bool
	submits    []common.SubmitBatch
	waitIdles  int

	failFence    error
	failSubmit   error
	failWaitIdle error
	failCreate   error
}

func newFakeGPU() *fakeGPU {
	return &fakeGPU{
		queue:      newQueue(),
		fences:     map[vk.Fence]*fakeFence{},
		semaphores: map[vk.Semaphore]bool{},
		memory:     map[vk.Buffer][]byte{},
		destroyed:  map[vk.Buffer]bool{},
	}
}

func (g *fakeGPU) CreateSemaphore() (vk.Semaphore, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := newSemaphore()
	g.semaphores[s] = true
	return s, nil
}

func (g *fakeGPU) CreateFence(signaled bool) (vk.Fence, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failFence != nil {
		return nil, g.failFence
	}
	f := newFence()
	g.fences[f] = &fakeFence{signaled: signaled}
	return f, nil
}

func (g *fakeGPU) DestroySemaphore(s vk.Semaphore) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.semaphores, s)
}

func (g *fakeGPU) DestroyFence(f vk.Fence) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.fences, f)
}

func (g *fakeGPU) WaitForFence(f vk.Fence, timeout uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	ff, ok := g.fences[f]
	if !ok {
		return errors.New("wait on unknown fence")
	}
	if ff.pending {
		ff.pending = false
		ff.signaled = true
	}
	if !ff.signaled {
		return errors.New("deadlock: waiting on a fence that was reset and never submitted")
	}
	return nil
}

func (g *fakeGPU) ResetFence(f vk.Fence) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fences[f].signaled = false
	return nil
}

func (g *fakeGPU) Submit(q vk.Queue, batch common.SubmitBatch, fence vk.Fence) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failSubmit != nil {
		return g.failSubmit
	}
	ff := g.fences[fence]
	if ff.signaled || ff.pending {
		return errors.New("submit with a fence that is still in use")
	}
	ff.pending = true
	g.submits = append(g.submits, batch)
	return nil
}

func (g *fakeGPU) WaitIdle() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWaitIdle != nil {
		return g.failWaitIdle
	}
	g.waitIdles++
	for _, ff := range g.fences {
		if ff.pending {
			ff.pending = false
			ff.signaled = true
		}
	}
	return nil
}

func (g *fakeGPU) CreateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags) (*common.Buffer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failCreate != nil {
		return nil, g.failCreate
	}
	h := newBufferHandle()
	g.memory[h] = make([]byte, size)
	return &common.Buffer{Handle: h, Size: size, Usage: usage, Props: props}, nil
}

func (g *fakeGPU) WriteBuffer(b *common.Buffer, payload []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !b.HostVisible() {
		return errors.New("write to device local buffer")
	}
	copy(g.memory[b.Handle], payload)
	return nil
}

func (g *fakeGPU) MapBuffer(b *common.Buffer) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.memory[b.Handle], nil
}

func (g *fakeGPU) DestroyBuffer(b *common.Buffer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.memory, b.Handle)
	g.destroyed[b.Handle] = true
}

func (g *fakeGPU) Queues() common.Queues {
	return common.NewSharedQueues(common.DeviceQueue{Queue: g.queue})
}

func (g *fakeGPU) bytes(h vk.Buffer) []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.memory[h]
}

func (g *fakeGPU) wasDestroyed(h vk.Buffer) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.destroyed[h]
}

func (g *fakeGPU) fenceSignaled(f vk.Fence) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fences[f].signaled
}

// fakeRecorder logs every recorded command. Copies are executed right away on the fake GPU memory.
type fakeRecorder struct {
	gpu     *fakeGPU
	raw     vk.CommandBuffer
	ops     []string
	history []string
	extents []vk.Extent2D
}

func newFakeRecorders(gpu *fakeGPU, n int) ([]Recorder, []*fakeRecorder) {
	recs := make([]Recorder, n)
	fakes := make([]*fakeRecorder, n)
	for i := range recs {
		fakes[i] = &fakeRecorder{gpu: gpu, raw: newCommandBuffer()}
		recs[i] = fakes[i]
	}
	return recs, fakes
}

func (r *fakeRecorder) log(op string) {
	r.ops = append(r.ops, op)
	r.history = append(r.history, op)
}

func (r *fakeRecorder) Raw() vk.CommandBuffer {
	return r.raw
}

func (r *fakeRecorder) Reset() error {
	r.ops = nil
	return nil
}

func (r *fakeRecorder) Begin(flags vk.CommandBufferUsageFlags) error {
	r.log("begin")
	return nil
}

func (r *fakeRecorder) End() error {
	r.log("end")
	return nil
}

func (r *fakeRecorder) CopyBuffer(src vk.Buffer, dst vk.Buffer, size vk.DeviceSize) {
	r.gpu.mu.Lock()
	copy(r.gpu.memory[dst], r.gpu.memory[src][:size])
	r.gpu.mu.Unlock()
	r.log("copy")
}

func (r *fakeRecorder) BufferBarrier(buf vk.Buffer, srcAccess vk.AccessFlags, dstAccess vk.AccessFlags, srcStage vk.PipelineStageFlags, dstStage vk.PipelineStageFlags) {
	r.log("barrier")
}

func (r *fakeRecorder) BeginRenderPass(rp vk.RenderPass, fb vk.Framebuffer, extent vk.Extent2D, clearValues []vk.ClearValue) {
	r.extents = append(r.extents, extent)
	r.log("begin_pass")
}

func (r *fakeRecorder) EndRenderPass() {
	r.log("end_pass")
}

func (r *fakeRecorder) SetViewport(vp vk.Viewport) {
	r.log("viewport")
}

func (r *fakeRecorder) SetScissor(extent vk.Extent2D) {
	r.log("scissor")
}

func (r *fakeRecorder) BindPipeline(p vk.Pipeline) {
	r.log("pipeline")
}

func (r *fakeRecorder) BindDescriptorSet(layout vk.PipelineLayout, set vk.DescriptorSet) {
	r.log("descriptor_set")
}

func (r *fakeRecorder) BindVertexBuffer(buf vk.Buffer) {
	r.log("vertex_buffer")
}

func (r *fakeRecorder) Draw(vertexCount uint32) {
	r.log(fmt.Sprintf("draw:%d", vertexCount))
}

func count(ops []string, op string) int {
	n := 0
	for _, o := range ops {
		if o == op {
			n++
		}
	}
	return n
}

func indexOf(ops []string, op string) int {
	for i, o := range ops {
		if o == op {
			return i
		}
	}
	return -1
}

// fakeChain hands out images round robin. onAcquire may override the status of an acquire, counted from 1.
type fakeChain struct {
	extent    vk.Extent2D
	views     []vk.ImageView
	next      uint32
	acquires  int
	presents  []vk.Extent2D
	destroyed bool

	onAcquire func(n int) common.SurfaceStatus
	onPresent func(n int) common.SurfaceStatus
}

func (c *fakeChain) Acquire(signal vk.Semaphore, timeout uint64) (uint32, common.SurfaceStatus, error) {
	if c.destroyed {
		return 0, common.SurfaceOK, errors.New("acquire on destroyed chain")
	}
	c.acquires++
	status := common.SurfaceOK
	if c.onAcquire != nil {
		status = c.onAcquire(c.acquires)
	}
	idx := c.next
	c.next = (c.next + 1) % uint32(len(c.views))
	return idx, status, nil
}

func (c *fakeChain) Present(q vk.Queue, imageIdx uint32, wait vk.Semaphore) (common.SurfaceStatus, error) {
	c.presents = append(c.presents, c.extent)
	if c.onPresent != nil {
		return c.onPresent(len(c.presents)), nil
	}
	return common.SurfaceOK, nil
}

func (c *fakeChain) Extent() vk.Extent2D {
	return c.extent
}

func (c *fakeChain) ImageViews() []vk.ImageView {
	return c.views
}

func (c *fakeChain) ImageFormat() vk.Format {
	return vk.FormatB8g8r8a8Unorm
}

func (c *fakeChain) MinImageCount() uint32 {
	return 2
}

func (c *fakeChain) Destroy() {
	c.destroyed = true
}

type fakeFactory struct {
	chains   []*fakeChain
	olds     []Chain
	fail     error
	onCreate func(c *fakeChain)
}

func (f *fakeFactory) NewChain(extent vk.Extent2D, old Chain) (Chain, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	c := &fakeChain{extent: extent, views: make([]vk.ImageView, 3)}
	if f.onCreate != nil {
		f.onCreate(c)
	}
	f.chains = append(f.chains, c)
	f.olds = append(f.olds, old)
	return c, nil
}

func (f *fakeFactory) latest() *fakeChain {
	return f.chains[len(f.chains)-1]
}

// fakeSurface moves to the next queued extent on every WaitEvents. It reports closing once the queue runs dry while
// the extent is still zero, so a missing event ends the wait instead of hanging the test.
type fakeSurface struct {
	extent  vk.Extent2D
	queued  []vk.Extent2D
	resized bool
	closing bool
	waits   int
}

func (s *fakeSurface) Extent() vk.Extent2D {
	return s.extent
}

func (s *fakeSurface) WaitEvents() {
	s.waits++
	if len(s.queued) == 0 {
		s.closing = true
		return
	}
	s.extent = s.queued[0]
	s.queued = s.queued[1:]
}

func (s *fakeSurface) ConsumeResize() bool {
	r := s.resized
	s.resized = false
	return r
}

func (s *fakeSurface) Closing() bool {
	return s.closing
}

// fakeResource logs its rebuilds into a shared journal.
type fakeResource struct {
	name      string
	journal   *[]string
	extent    vk.Extent2D
	fail      error
	destroyed bool
}

func (r *fakeResource) Rebuild(c Chain) error {
	if r.fail != nil {
		return r.fail
	}
	r.extent = c.Extent()
	*r.journal = append(*r.journal, fmt.Sprintf("%s:%s", r.name, common.ExtentString(r.extent)))
	return nil
}

func (r *fakeResource) Extent() vk.Extent2D {
	return r.extent
}

func (r *fakeResource) Destroy() {
	r.destroyed = true
	*r.journal = append(*r.journal, "destroy:"+r.name)
}

// fakeTargets are framebuffers that follow the chain without touching a device.
type fakeTargets struct {
	fbs    []vk.Framebuffer
	extent vk.Extent2D
}

func (t *fakeTargets) Rebuild(c Chain) error {
	t.fbs = make([]vk.Framebuffer, len(c.ImageViews()))
	for i := range t.fbs {
		t.fbs[i] = newFramebuffer()
	}
	t.extent = c.Extent()
	return nil
}

func (t *fakeTargets) Extent() vk.Extent2D {
	return t.extent
}

func (t *fakeTargets) Destroy() {
	t.fbs = nil
}

func (t *fakeTargets) Framebuffer(imageIdx uint32) vk.Framebuffer {
	return t.fbs[imageIdx]
}

type fakeUpdater struct {
	calls int
}

func (u *fakeUpdater) Update(dt time.Duration) {
	u.calls++
}

type fakeUniforms struct {
	writes []int
}

func (u *fakeUniforms) WriteUniforms(slot int, extent vk.Extent2D) {
	u.writes = append(u.writes, slot)
}

// engine is the frame engine wired against fakes the same way the render core wires it against the device.
type engine struct {
	gpu      *fakeGPU
	surface  *fakeSurface
	factory  *fakeFactory
	syncs    *FrameSyncSet
	swap     *SwapchainLifecycle
	uploads  *UploadPipeline
	geometry *Geometry
	params   Parameters

	primRecs    []*fakeRecorder
	overlayRecs []*fakeRecorder
	primitives  *Primitives
	overlay     *Overlay
	updater     *fakeUpdater
	uniforms    *fakeUniforms
	scheduler   *Scheduler
}

func newEngine(t testingT, extent vk.Extent2D) *engine {
	t.Helper()
	e := &engine{
		gpu:      newFakeGPU(),
		surface:  &fakeSurface{extent: extent},
		factory:  &fakeFactory{},
		params:   DefaultParameters(),
		updater:  &fakeUpdater{},
		uniforms: &fakeUniforms{},
	}
	e.params.DrawBoundingBoxes = true
	e.params.DrawBroadPhase = true

	var err error
	e.syncs, err = NewFrameSyncSet(e.gpu, MAX_FRAMES_IN_FLIGHT)
	if err != nil {
		t.Fatalf("NewFrameSyncSet: %v", err)
	}
	e.swap, err = NewSwapchainLifecycle(e.gpu, e.factory, e.surface)
	if err != nil {
		t.Fatalf("NewSwapchainLifecycle: %v", err)
	}
	e.uploads = NewUploadPipeline(e.gpu, MAX_FRAMES_IN_FLIGHT)
	e.geometry = NewGeometry(e.uploads)

	primTargets := &fakeTargets{}
	if err := e.swap.Register(primTargets); err != nil {
		t.Fatalf("Register: %v", err)
	}
	primRecs, primFakes := newFakeRecorders(e.gpu, MAX_FRAMES_IN_FLIGHT)
	overlayRecs, overlayFakes := newFakeRecorders(e.gpu, MAX_FRAMES_IN_FLIGHT)
	e.primRecs, e.overlayRecs = primFakes, overlayFakes
	pipelines := &Pipelines{Triangles: newPipeline(), Wireframe: newPipeline()}
	e.primitives = NewPrimitives(&e.params, primRecs, e.geometry, nil, primTargets, pipelines, nil)
	e.overlay = NewOverlay(overlayRecs, nil, &fakeTargets{}, nil)
	if err := e.swap.Register(e.overlay); err != nil {
		t.Fatalf("Register: %v", err)
	}
	e.scheduler = NewScheduler(e.gpu, e.syncs, e.swap, e.uploads, e.primitives, e.overlay, e.uniforms, e.updater)
	return e
}

func (e *engine) frames(t testingT, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := e.scheduler.Frame(); err != nil {
			t.Fatalf("frame %d: %v", e.scheduler.Frames()+e.scheduler.Skipped()+1, err)
		}
	}
}

// testingT is the part of *testing.T the helpers need.
type testingT interface {
	Fatalf(format string, args ...any)
	Helper()
}
