package renderer

import (
	"triangles_vk/common"

	vk "github.com/goki/vulkan"
)

// DepthBuffer is the single depth attachment shared by all primitives framebuffers.
type DepthBuffer struct {
	dc     *common.Device
	upload *common.UploadContext
	format vk.Format
	image  *common.DepthImage
}

func NewDepthBuffer(dc *common.Device, upload *common.UploadContext) (*DepthBuffer, error) {
	format, err := common.FindDepthFormat(dc)
	if err != nil {
		return nil, err
	}
	return &DepthBuffer{dc: dc, upload: upload, format: format}, nil
}

// Rebuild replaces the image with one of the chain's extent and moves it into the attachment layout.
func (d *DepthBuffer) Rebuild(c Chain) error {
	d.Destroy()
	img, err := common.CreateDepthImage(d.dc, c.Extent(), d.format)
	if err != nil {
		return err
	}
	d.image = img

	aspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	if hasStencilComponent(d.format) {
		aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	return d.upload.Immediate(func(cb common.CommandBuffer) {
		cb.ImageBarrier(
			img.Handle,
			aspect,
			vk.ImageLayoutUndefined,
			vk.ImageLayoutDepthStencilAttachmentOptimal,
			0,
			vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit|vk.AccessDepthStencilAttachmentWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
		)
	})
}

func (d *DepthBuffer) Format() vk.Format {
	return d.format
}

func (d *DepthBuffer) View() vk.ImageView {
	if d.image == nil {
		return nil
	}
	return d.image.View
}

func (d *DepthBuffer) Extent() vk.Extent2D {
	if d.image == nil {
		return vk.Extent2D{}
	}
	return d.image.Extent
}

func (d *DepthBuffer) Destroy() {
	if d.image != nil {
		d.image.Destroy(d.dc)
		d.image = nil
	}
}

func hasStencilComponent(format vk.Format) bool {
	return format == vk.FormatD32SfloatS8Uint || format == vk.FormatD24UnormS8Uint
}
