package renderer

import (
	"triangles_vk/common"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// Framebuffers holds one framebuffer per swap chain image for a render pass. With a depth buffer, the depth buffer
// must be registered with the swap chain lifecycle first so it already has the new extent.
type Framebuffers struct {
	dc         *common.Device
	renderPass vk.RenderPass
	depth      *DepthBuffer

	fbs    []vk.Framebuffer
	extent vk.Extent2D
}

func NewFramebuffers(dc *common.Device, renderPass vk.RenderPass, depth *DepthBuffer) *Framebuffers {
	return &Framebuffers{dc: dc, renderPass: renderPass, depth: depth}
}

func (f *Framebuffers) Rebuild(c Chain) error {
	f.Destroy()
	var depthView vk.ImageView
	if f.depth != nil {
		if f.depth.Extent() != c.Extent() {
			return errors.Errorf("depth buffer is %s but swap chain is %s",
				common.ExtentString(f.depth.Extent()), common.ExtentString(c.Extent()))
		}
		depthView = f.depth.View()
	}
	fbs, err := common.CreateFrameBuffers(f.dc, f.renderPass, c.ImageViews(), depthView, c.Extent())
	if err != nil {
		return err
	}
	f.fbs = fbs
	f.extent = c.Extent()
	return nil
}

func (f *Framebuffers) Framebuffer(imageIdx uint32) vk.Framebuffer {
	return f.fbs[imageIdx]
}

func (f *Framebuffers) Extent() vk.Extent2D {
	return f.extent
}

func (f *Framebuffers) Len() int {
	return len(f.fbs)
}

func (f *Framebuffers) Destroy() {
	common.DestroyFrameBuffers(f.dc, f.fbs)
	f.fbs = nil
	f.extent = vk.Extent2D{}
}
