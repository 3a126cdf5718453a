package common

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// Utility functions that reduce visual clutter by abstracting some of the common default values into very obvious
// functions that should cover their respective use case most of the time. This is done to cut down on labor writing
// things out that are unlikely to change or are not relevant now. The main way typing is reduced by moving or
// defaulting parameters from 'createInfo' structs.

func VKAllocateCommandBuffersPrimary(device vk.Device, cmdPool vk.CommandPool, count uint32) ([]vk.CommandBuffer, error) {
	cbAllocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		PNext:              nil,
		CommandPool:        cmdPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	}
	return VKSAllocateCommandBuffers(device, &cbAllocateInfo)
}

// CommandBuffer wraps a primary command buffer with the handful of recording calls the renderer issues.
type CommandBuffer struct {
	Handle vk.CommandBuffer
}

func (cb CommandBuffer) Raw() vk.CommandBuffer {
	return cb.Handle
}

func (cb CommandBuffer) Reset() error {
	return vk.Error(vk.ResetCommandBuffer(cb.Handle, 0))
}

func (cb CommandBuffer) Begin(flags vk.CommandBufferUsageFlags) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType:            vk.StructureTypeCommandBufferBeginInfo,
		PNext:            nil,
		Flags:            flags,
		PInheritanceInfo: nil,
	}
	return vk.Error(vk.BeginCommandBuffer(cb.Handle, &beginInfo))
}

func (cb CommandBuffer) End() error {
	return vk.Error(vk.EndCommandBuffer(cb.Handle))
}

func (cb CommandBuffer) CopyBuffer(src vk.Buffer, dst vk.Buffer, size vk.DeviceSize) {
	copyRegions := []vk.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: size}}
	vk.CmdCopyBuffer(cb.Handle, src, dst, 1, copyRegions)
}

// BufferBarrier makes writes of the source stage visible to reads of the destination stage for the whole buffer.
func (cb CommandBuffer) BufferBarrier(buf vk.Buffer, srcAccess vk.AccessFlags, dstAccess vk.AccessFlags, srcStage vk.PipelineStageFlags, dstStage vk.PipelineStageFlags) {
	barrier := vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		PNext:               nil,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              buf,
		Offset:              0,
		Size:                vk.DeviceSize(vk.WholeSize),
	}
	vk.CmdPipelineBarrier(cb.Handle, srcStage, dstStage, 0, 0, nil, 1, []vk.BufferMemoryBarrier{barrier}, 0, nil)
}

// ImageBarrier moves all mips and layers of img from layout old to layout new.
func (cb CommandBuffer) ImageBarrier(img vk.Image, aspect vk.ImageAspectFlags, old vk.ImageLayout, new vk.ImageLayout, srcAccess vk.AccessFlags, dstAccess vk.AccessFlags, srcStage vk.PipelineStageFlags, dstStage vk.PipelineStageFlags) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		PNext:               nil,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		OldLayout:           old,
		NewLayout:           new,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     vk.RemainingMipLevels,
			BaseArrayLayer: 0,
			LayerCount:     vk.RemainingArrayLayers,
		},
	}
	vk.CmdPipelineBarrier(cb.Handle, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

func (cb CommandBuffer) BeginRenderPass(rp vk.RenderPass, fb vk.Framebuffer, extent vk.Extent2D, clearValues []vk.ClearValue) {
	renderPassInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		PNext:       nil,
		RenderPass:  rp,
		Framebuffer: fb,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cb.Handle, &renderPassInfo, vk.SubpassContentsInline)
}

func (cb CommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(cb.Handle)
}

func (cb CommandBuffer) SetViewport(vp vk.Viewport) {
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{vp})
}

func (cb CommandBuffer) SetScissor(extent vk.Extent2D) {
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{{Offset: vk.Offset2D{X: 0, Y: 0}, Extent: extent}})
}

func (cb CommandBuffer) BindPipeline(p vk.Pipeline) {
	vk.CmdBindPipeline(cb.Handle, vk.PipelineBindPointGraphics, p)
}

func (cb CommandBuffer) BindDescriptorSet(layout vk.PipelineLayout, set vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointGraphics, layout, 0, 1, []vk.DescriptorSet{set}, 0, nil)
}

func (cb CommandBuffer) BindVertexBuffer(buf vk.Buffer) {
	vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{buf}, []vk.DeviceSize{0})
}

func (cb CommandBuffer) Draw(vertexCount uint32) {
	vk.CmdDraw(cb.Handle, vertexCount, 1, 0, 0)
}

// UploadContext is a channel for one-shot transfers outside of the frame loop. Each submission gets its own
// command buffer and waits on a fence, so the call returns when the GPU has finished.
type UploadContext struct {
	dc    *Device
	pool  vk.CommandPool
	fence vk.Fence
}

func NewUploadContext(dc *Device) (*UploadContext, error) {
	pool, err := VKSCreateCommandPool(dc.D, vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit), dc.Queues().Graphics().Family)
	if err != nil {
		return nil, errors.Wrap(err, "create upload command pool")
	}
	fence, err := dc.CreateFence(false)
	if err != nil {
		vk.DestroyCommandPool(dc.D, pool, nil)
		return nil, errors.Wrap(err, "create upload fence")
	}
	return &UploadContext{dc: dc, pool: pool, fence: fence}, nil
}

// Immediate records the commands produced by fn and blocks until they completed on the graphics queue.
func (u *UploadContext) Immediate(fn func(cb CommandBuffer)) error {
	buffers, err := VKAllocateCommandBuffersPrimary(u.dc.D, u.pool, 1)
	if err != nil {
		return errors.Wrap(err, "allocate one-shot command buffer")
	}
	defer vk.FreeCommandBuffers(u.dc.D, u.pool, 1, buffers)

	cb := CommandBuffer{Handle: buffers[0]}
	if err := cb.Begin(vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)); err != nil {
		return errors.Wrap(err, "begin one-shot command buffer")
	}
	fn(cb)
	if err := cb.End(); err != nil {
		return errors.Wrap(err, "end one-shot command buffer")
	}
	batch := SubmitBatch{Buffers: buffers}
	if err := u.dc.Submit(u.dc.Queues().Graphics().Queue, batch, u.fence); err != nil {
		return errors.Wrap(err, "submit one-shot command buffer")
	}
	if err := u.dc.WaitForFence(u.fence, math.MaxUint64); err != nil {
		return errors.Wrap(err, "wait for one-shot upload")
	}
	return u.dc.ResetFence(u.fence)
}

func (u *UploadContext) Destroy() {
	u.dc.DestroyFence(u.fence)
	vk.DestroyCommandPool(u.dc.D, u.pool, nil)
}
