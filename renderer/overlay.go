package renderer

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// OverlayPainter draws on top of the finished scene inside the overlay render pass.
type OverlayPainter interface {
	Paint(rec Recorder, extent vk.Extent2D)
}

// OverlayTargets are the image sized framebuffers of the overlay pass.
type OverlayTargets interface {
	ImageSizedResource
	FramebufferSource
}

// Overlay records the last pass of every frame. It always runs, even without a painter, because its render pass
// moves the image into the present layout.
type Overlay struct {
	recorders  []Recorder
	renderPass vk.RenderPass
	targets    OverlayTargets
	painter    OverlayPainter

	minImages  uint32
	imageCount int
}

func NewOverlay(recorders []Recorder, renderPass vk.RenderPass, targets OverlayTargets, painter OverlayPainter) *Overlay {
	return &Overlay{recorders: recorders, renderPass: renderPass, targets: targets, painter: painter}
}

func (o *Overlay) SetPainter(p OverlayPainter) {
	o.painter = p
}

func (o *Overlay) Rebuild(c Chain) error {
	if err := o.targets.Rebuild(c); err != nil {
		return errors.Wrap(err, "rebuild overlay framebuffers")
	}
	o.minImages = c.MinImageCount()
	o.imageCount = len(c.ImageViews())
	return nil
}

func (o *Overlay) Extent() vk.Extent2D {
	return o.targets.Extent()
}

// MinImageCount and ImageCount mirror the chain the overlay was last built for.
func (o *Overlay) MinImageCount() uint32 {
	return o.minImages
}

func (o *Overlay) ImageCount() int {
	return o.imageCount
}

func (o *Overlay) Destroy() {
	o.targets.Destroy()
}

func (o *Overlay) RecordFrame(slot int, imageIdx uint32, extent vk.Extent2D) (vk.CommandBuffer, error) {
	rec := o.recorders[slot]
	if err := rec.Reset(); err != nil {
		return nil, errors.Wrap(err, "reset overlay command buffer")
	}
	if err := rec.Begin(0); err != nil {
		return nil, errors.Wrap(err, "begin overlay command buffer")
	}
	rec.BeginRenderPass(o.renderPass, o.targets.Framebuffer(imageIdx), extent, nil)
	if o.painter != nil {
		o.painter.Paint(rec, extent)
	}
	rec.EndRenderPass()
	if err := rec.End(); err != nil {
		return nil, errors.Wrap(err, "end overlay command buffer")
	}
	return rec.Raw(), nil
}
