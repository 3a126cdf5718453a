package renderer

import (
	"triangles_vk/common"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// Recorder is the command buffer surface the draw producers record through.
type Recorder interface {
	TransferRecorder
	Raw() vk.CommandBuffer
	Reset() error
	Begin(flags vk.CommandBufferUsageFlags) error
	End() error
	BeginRenderPass(rp vk.RenderPass, fb vk.Framebuffer, extent vk.Extent2D, clearValues []vk.ClearValue)
	EndRenderPass()
	SetViewport(vp vk.Viewport)
	SetScissor(extent vk.Extent2D)
	BindPipeline(p vk.Pipeline)
	BindDescriptorSet(layout vk.PipelineLayout, set vk.DescriptorSet)
	BindVertexBuffer(buf vk.Buffer)
	Draw(vertexCount uint32)
}

var _ Recorder = common.CommandBuffer{}

// FramebufferSource hands out the framebuffer of a swap chain image.
type FramebufferSource interface {
	Framebuffer(imageIdx uint32) vk.Framebuffer
}

// Primitives records the main pass: pending promotions first, then the filled triangles and the enabled wire meshes.
type Primitives struct {
	Params *Parameters

	recorders    []Recorder
	geometry     *Geometry
	renderPass   vk.RenderPass
	framebuffers FramebufferSource
	pipelines    *Pipelines
	sets         []vk.DescriptorSet
}

func NewPrimitives(params *Parameters, recorders []Recorder, geometry *Geometry, renderPass vk.RenderPass, framebuffers FramebufferSource, pipelines *Pipelines, sets []vk.DescriptorSet) *Primitives {
	return &Primitives{
		Params:       params,
		recorders:    recorders,
		geometry:     geometry,
		renderPass:   renderPass,
		framebuffers: framebuffers,
		pipelines:    pipelines,
		sets:         sets,
	}
}

// FlippedViewport puts the origin at the bottom left so +y points up like in the camera's space.
func FlippedViewport(extent vk.Extent2D) vk.Viewport {
	return vk.Viewport{
		X:        0,
		Y:        float32(extent.Height),
		Width:    float32(extent.Width),
		Height:   -float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
}

func (p *Primitives) RecordFrame(slot int, imageIdx uint32, extent vk.Extent2D) (vk.CommandBuffer, error) {
	rec := p.recorders[slot]
	if err := rec.Reset(); err != nil {
		return nil, errors.Wrap(err, "reset primitives command buffer")
	}
	if err := rec.Begin(0); err != nil {
		return nil, errors.Wrap(err, "begin primitives command buffer")
	}
	// Copies are not allowed inside a render pass.
	if err := p.geometry.PromotePending(rec, slot); err != nil {
		return nil, err
	}

	clearColor := HexToRGBA(p.Params.ClearColor)
	clearValues := []vk.ClearValue{
		vk.NewClearValue(clearColor[:]),
		vk.NewClearDepthStencil(1, 0),
	}
	rec.BeginRenderPass(p.renderPass, p.framebuffers.Framebuffer(imageIdx), extent, clearValues)
	rec.SetViewport(FlippedViewport(extent))
	rec.SetScissor(extent)
	if slot < len(p.sets) {
		rec.BindDescriptorSet(p.pipelines.Layout, p.sets[slot])
	}

	p.drawCategory(rec, p.pipelines.Triangles, Triangles)
	if p.Params.DrawBoundingBoxes {
		p.drawCategory(rec, p.pipelines.Wireframe, BoundingBox)
	}
	if p.Params.DrawBroadPhase {
		p.drawCategory(rec, p.pipelines.Wireframe, BroadPhase)
	}

	rec.EndRenderPass()
	if err := rec.End(); err != nil {
		return nil, errors.Wrap(err, "end primitives command buffer")
	}
	return rec.Raw(), nil
}

// drawCategory skips categories that are not resident yet.
func (p *Primitives) drawCategory(rec Recorder, pipeline vk.Pipeline, c Category) {
	buf := p.geometry.Buffer(c)
	dev := buf.Device()
	if dev == nil {
		return
	}
	rec.BindPipeline(pipeline)
	rec.BindVertexBuffer(dev.Handle)
	rec.Draw(buf.ElementCount())
}
