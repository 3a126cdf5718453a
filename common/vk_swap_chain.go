package common

import (
	"log"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// SurfaceStatus is what acquire and present report back instead of raw result codes. Resizing the window produces
// SurfaceSuboptimal or SurfaceStale as part of normal operation.
type SurfaceStatus int

const (
	SurfaceOK SurfaceStatus = iota
	SurfaceSuboptimal
	SurfaceStale
)

func (s SurfaceStatus) String() string {
	switch s {
	case SurfaceOK:
		return "OK"
	case SurfaceSuboptimal:
		return "SUBOPTIMAL"
	case SurfaceStale:
		return "STALE"
	default:
		return "UNKNOWN"
	}
}

// StatusFromResult splits a swap chain result into a status and a real failure.
func StatusFromResult(r vk.Result) (SurfaceStatus, error) {
	switch r {
	case vk.Success:
		return SurfaceOK, nil
	case vk.Suboptimal:
		return SurfaceSuboptimal, nil
	case vk.ErrorOutOfDate:
		return SurfaceStale, nil
	default:
		return SurfaceOK, vk.Error(r)
	}
}

type SwapChain struct {
	dc         *Device
	supDetails SwapChainDetails
	Handle     vk.Swapchain

	Format      vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extend      vk.Extent2D
	MinImages   uint32

	Images   []vk.Image
	ImgViews []vk.ImageView
}

// NewSwapChain creates a chain of the requested extent (clamped to what the surface allows). A non nil old chain is
// passed to the driver as a hint; it is not destroyed here.
func NewSwapChain(dc *Device, surf vk.Surface, extent vk.Extent2D, old *SwapChain) (*SwapChain, error) {
	sc := &SwapChain{dc: dc}
	sc.chooseConfiguration(surf, extent)
	if err := sc.createSwapChainHandle(surf, old); err != nil {
		return nil, err
	}
	sc.Images = ReadSwapChainImages(dc.D, sc.Handle)
	if err := sc.createImageViews(); err != nil {
		sc.Destroy()
		return nil, err
	}
	log.Printf("Successfully created swap chain with %d images of %s", len(sc.Images), ExtentString(sc.Extend))
	return sc, nil
}

func (sc *SwapChain) chooseConfiguration(surf vk.Surface, extent vk.Extent2D) {
	sc.supDetails = ReadSwapChainSupportDetails(sc.dc.PD, surf)
	sc.Format = sc.supDetails.selectSwapSurfaceFormat(vk.FormatB8g8r8a8Unorm, vk.ColorSpaceSrgbNonlinear)
	sc.PresentMode = sc.supDetails.selectSwapPresentMode(vk.PresentModeMailbox)
	sc.Extend = ClampExtent(sc.supDetails.capabilities, extent)
}

func (sc *SwapChain) createSwapChainHandle(surf vk.Surface, old *SwapChain) error {
	// Calc reasonable image count for swap chain
	imgCount := sc.supDetails.capabilities.MinImageCount + 1
	imgMaxCount := sc.supDetails.capabilities.MaxImageCount
	if imgMaxCount > 0 && imgCount > imgMaxCount {
		imgCount = imgMaxCount
	}
	sc.MinImages = sc.supDetails.capabilities.MinImageCount

	// Depending on whether our queue families are the same for graphics and presentation, we need to choose different
	// swap chain configurations: https://vulkan-tutorial.com/Drawing_a_triangle/Presentation/Swap_chain
	sharingMode := vk.SharingModeExclusive
	qFamIndices := sc.dc.Queues().Families()
	if qFamIndices != nil {
		sharingMode = vk.SharingModeConcurrent
	}
	var oldHandle vk.Swapchain
	if old != nil {
		oldHandle = old.Handle
	}
	createInfo := &vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		PNext:                 nil,
		Flags:                 0,
		Surface:               surf,
		MinImageCount:         imgCount,
		ImageFormat:           sc.Format.Format,
		ImageColorSpace:       sc.Format.ColorSpace,
		ImageExtent:           sc.Extend,
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode:      sharingMode,
		QueueFamilyIndexCount: uint32(len(qFamIndices)),
		PQueueFamilyIndices:   qFamIndices,
		PreTransform:          sc.supDetails.capabilities.CurrentTransform,
		CompositeAlpha:        vk.CompositeAlphaOpaqueBit,
		PresentMode:           sc.PresentMode,
		Clipped:               vk.True,
		OldSwapchain:          oldHandle,
	}
	var err error
	sc.Handle, err = VkCreateSwapChain(sc.dc.D, createInfo, nil)
	if err != nil {
		return errors.Wrap(err, "create swapchain")
	}
	return nil
}

func (sc *SwapChain) createImageViews() error {
	sc.ImgViews = make([]vk.ImageView, 0, len(sc.Images))
	for i := range sc.Images {
		view, err := CreateImageViewDC(sc.dc, sc.Images[i], sc.Format.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return err
		}
		sc.ImgViews = append(sc.ImgViews, view)
	}
	return nil
}

// Acquire requests the next image, signalling the given semaphore once it is ready to be rendered to.
func (sc *SwapChain) Acquire(signal vk.Semaphore, timeout uint64) (uint32, SurfaceStatus, error) {
	var imgIdx uint32
	result := vk.AcquireNextImage(sc.dc.D, sc.Handle, timeout, signal, nil, &imgIdx)
	status, err := StatusFromResult(result)
	if err != nil {
		return 0, status, errors.Wrap(err, "acquire next image")
	}
	return imgIdx, status, nil
}

func (sc *SwapChain) Present(q vk.Queue, imageIdx uint32, wait vk.Semaphore) (SurfaceStatus, error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		PNext:              nil,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.Handle},
		PImageIndices:      []uint32{imageIdx},
		PResults:           nil,
	}
	status, err := StatusFromResult(vk.QueuePresent(q, &presentInfo))
	if err != nil {
		return status, errors.Wrap(err, "present image")
	}
	return status, nil
}

func (sc *SwapChain) Extent() vk.Extent2D {
	return sc.Extend
}

func (sc *SwapChain) ImageViews() []vk.ImageView {
	return sc.ImgViews
}

func (sc *SwapChain) ImageFormat() vk.Format {
	return sc.Format.Format
}

func (sc *SwapChain) MinImageCount() uint32 {
	return sc.MinImages
}

func (sc *SwapChain) Destroy() {
	for i := range sc.ImgViews {
		vk.DestroyImageView(sc.dc.D, sc.ImgViews[i], nil)
	}
	vk.DestroySwapchain(sc.dc.D, sc.Handle, nil)
}

type SwapChainDetails struct {
	capabilities vk.SurfaceCapabilities
	formats      []vk.SurfaceFormat
	presentModes []vk.PresentMode
}

func (s *SwapChainDetails) selectSwapSurfaceFormat(desiredFormat vk.Format, desiredColorSpace vk.ColorSpace) vk.SurfaceFormat {
	for _, af := range s.formats {
		if af.Format == desiredFormat && af.ColorSpace == desiredColorSpace {
			return af
		}
	}
	fallbackFormat := s.formats[0]
	log.Printf("Did not find prefered SurfaceFormat, selecting first one available. (%v)", fallbackFormat)
	return fallbackFormat
}

func (s *SwapChainDetails) selectSwapPresentMode(desiredMode vk.PresentMode) vk.PresentMode {
	for _, pm := range s.presentModes {
		if pm == desiredMode {
			return pm
		}
	}
	return vk.PresentModeFifo
}

// ClampExtent uses the surface's current extent when the platform dictates one, otherwise the wanted extent is
// clamped into the supported range.
func ClampExtent(caps vk.SurfaceCapabilities, want vk.Extent2D) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clamp(want.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(want.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func checkSwapChainAdequacy(pd vk.PhysicalDevice, surface vk.Surface) bool {
	scDetails := ReadSwapChainSupportDetails(pd, surface)
	return len(scDetails.formats) > 0 && len(scDetails.presentModes) > 0
}

func CreateImageViewDC(dc *Device, image vk.Image, format vk.Format, aspectFlags vk.ImageAspectFlags) (vk.ImageView, error) {
	createInfo := &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		PNext:    nil,
		Flags:    0,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFlags,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	imgView, err := VkCreateImageView(dc.D, createInfo, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create image view")
	}
	return imgView, nil
}

// CreateFrameBuffers creates one framebuffer per image view. The depth view is shared by all of them if given.
func CreateFrameBuffers(dc *Device, renderPass vk.RenderPass, views []vk.ImageView, depthView vk.ImageView, extent vk.Extent2D) ([]vk.Framebuffer, error) {
	fbs := make([]vk.Framebuffer, 0, len(views))
	for i := range views {
		attachments := []vk.ImageView{views[i]}
		if depthView != nil {
			attachments = append(attachments, depthView)
		}
		framebufferInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			PNext:           nil,
			Flags:           0,
			RenderPass:      renderPass,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           extent.Width,
			Height:          extent.Height,
			Layers:          1,
		}
		fb, err := VkCreateFrameBuffer(dc.D, &framebufferInfo, nil)
		if err != nil {
			DestroyFrameBuffers(dc, fbs)
			return nil, errors.Wrapf(err, "create frame buffer [%d]", i)
		}
		fbs = append(fbs, fb)
	}
	return fbs, nil
}

func DestroyFrameBuffers(dc *Device, fbs []vk.Framebuffer) {
	for i := range fbs {
		vk.DestroyFramebuffer(dc.D, fbs[i], nil)
	}
}
