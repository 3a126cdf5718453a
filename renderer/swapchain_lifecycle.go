package renderer

import (
	"log"

	"triangles_vk/common"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// Chain is one generation of presentable images.
type Chain interface {
	Acquire(signal vk.Semaphore, timeout uint64) (uint32, common.SurfaceStatus, error)
	Present(q vk.Queue, imageIdx uint32, wait vk.Semaphore) (common.SurfaceStatus, error)
	Extent() vk.Extent2D
	ImageViews() []vk.ImageView
	ImageFormat() vk.Format
	MinImageCount() uint32
	Destroy()
}

var _ Chain = (*common.SwapChain)(nil)

// ChainFactory creates a chain of the given extent. old is only a hint for the driver and may be nil.
type ChainFactory interface {
	NewChain(extent vk.Extent2D, old Chain) (Chain, error)
}

// ExtentSource is the window side of the surface.
type ExtentSource interface {
	Extent() vk.Extent2D
	WaitEvents()
	ConsumeResize() bool
	Closing() bool
}

// ImageSizedResource is anything whose dimensions follow the swap chain. Rebuild must replace the resource
// completely for the given chain.
type ImageSizedResource interface {
	Rebuild(c Chain) error
	Extent() vk.Extent2D
	Destroy()
}

var ErrSurfaceClosed = errors.New("window closed while waiting for a drawable surface")

type SwapchainLifecycle struct {
	gpu     GPU
	factory ChainFactory
	surface ExtentSource

	chain      Chain
	dependents []ImageSizedResource
	generation uint64
}

func NewSwapchainLifecycle(gpu GPU, factory ChainFactory, surface ExtentSource) (*SwapchainLifecycle, error) {
	l := &SwapchainLifecycle{gpu: gpu, factory: factory, surface: surface}
	extent, err := l.waitForExtent()
	if err != nil {
		return nil, err
	}
	l.chain, err = factory.NewChain(extent, nil)
	if err != nil {
		return nil, deviceCreation("create swap chain", err)
	}
	return l, nil
}

// Register adds a dependent and builds it for the current chain. Dependents are rebuilt in registration order.
func (l *SwapchainLifecycle) Register(r ImageSizedResource) error {
	if err := r.Rebuild(l.chain); err != nil {
		return err
	}
	l.dependents = append(l.dependents, r)
	return nil
}

func (l *SwapchainLifecycle) Current() Chain {
	return l.chain
}

// Generation counts completed rebuilds.
func (l *SwapchainLifecycle) Generation() uint64 {
	return l.generation
}

func (l *SwapchainLifecycle) ConsumeResize() bool {
	return l.surface.ConsumeResize()
}

// Acquire returns a *SurfaceStaleError when the chain is out of date. A suboptimal chain still hands out an image,
// the following present reports it.
func (l *SwapchainLifecycle) Acquire(signal vk.Semaphore, timeout uint64) (uint32, error) {
	idx, status, err := l.chain.Acquire(signal, timeout)
	if err != nil {
		return 0, err
	}
	if status == common.SurfaceStale {
		return 0, &SurfaceStaleError{Status: status}
	}
	return idx, nil
}

// Present returns a *SurfaceStaleError for both suboptimal and out of date chains. The image was still queued in
// the suboptimal case.
func (l *SwapchainLifecycle) Present(q vk.Queue, imageIdx uint32, wait vk.Semaphore) error {
	status, err := l.chain.Present(q, imageIdx, wait)
	if err != nil {
		return err
	}
	if status != common.SurfaceOK {
		return &SurfaceStaleError{Status: status}
	}
	return nil
}

// Rebuild replaces the chain with one matching the current surface extent. The new chain is created before the old
// one is destroyed, and the old one is only destroyed once the device is idle because presents against it may still
// be queued.
func (l *SwapchainLifecycle) Rebuild() error {
	extent, err := l.waitForExtent()
	if err != nil {
		return err
	}
	old := l.chain
	next, err := l.factory.NewChain(extent, old)
	if err != nil {
		return errors.Wrap(err, "recreate swap chain")
	}
	if err := l.gpu.WaitIdle(); err != nil {
		next.Destroy()
		return errors.Wrap(err, "wait for device idle before swap chain teardown")
	}
	l.chain = next
	// The device is idle, so the old chain goes even when a dependent fails.
	defer old.Destroy()
	l.generation++
	for _, r := range l.dependents {
		if err := r.Rebuild(next); err != nil {
			return errors.Wrap(err, "rebuild image sized resource")
		}
	}
	log.Printf("Recreated swap chain (generation %d) with extent %s", l.generation, common.ExtentString(next.Extent()))
	return nil
}

// waitForExtent blocks on window events while the surface has no area, e.g. while minimized.
func (l *SwapchainLifecycle) waitForExtent() (vk.Extent2D, error) {
	extent := l.surface.Extent()
	for extent.Width == 0 || extent.Height == 0 {
		if l.surface.Closing() {
			return extent, ErrSurfaceClosed
		}
		l.surface.WaitEvents()
		extent = l.surface.Extent()
	}
	return extent, nil
}

// Destroy tears down dependents in reverse order and then the chain. The caller waits for the device to be idle.
func (l *SwapchainLifecycle) Destroy() {
	for i := len(l.dependents) - 1; i >= 0; i-- {
		l.dependents[i].Destroy()
	}
	l.dependents = nil
	if l.chain != nil {
		l.chain.Destroy()
		l.chain = nil
	}
}
