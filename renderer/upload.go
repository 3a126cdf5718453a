package renderer

import (
	"log"
	"sync/atomic"

	"triangles_vk/common"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

type UploadState int32

const (
	UploadEmpty UploadState = iota
	UploadStaging
	UploadStaged
	UploadPromoting
	UploadResident
)

func (s UploadState) String() string {
	switch s {
	case UploadEmpty:
		return "EMPTY"
	case UploadStaging:
		return "STAGING"
	case UploadStaged:
		return "STAGED"
	case UploadPromoting:
		return "PROMOTING"
	case UploadResident:
		return "RESIDENT"
	default:
		return "UNKNOWN"
	}
}

// UploadableBuffer moves vertex data from a host visible staging buffer into device local memory. Stage claims an
// EMPTY buffer as STAGING and writes the fields before publishing STAGED, Promote writes them before RESIDENT. Readers
// must check the state first.
type UploadableBuffer struct {
	Category Category

	state        atomic.Int32
	byteCount    vk.DeviceSize
	elementCount uint32
	staging      *common.Buffer
	device       *common.Buffer
}

func NewUploadableBuffer(c Category) *UploadableBuffer {
	return &UploadableBuffer{Category: c}
}

func (b *UploadableBuffer) State() UploadState {
	return UploadState(b.state.Load())
}

// published reports whether Stage has finished writing the fields.
func (b *UploadableBuffer) published() bool {
	s := b.State()
	return s != UploadEmpty && s != UploadStaging
}

// ElementCount is the number of vertices, zero before staging.
func (b *UploadableBuffer) ElementCount() uint32 {
	if !b.published() {
		return 0
	}
	return b.elementCount
}

func (b *UploadableBuffer) ByteCount() vk.DeviceSize {
	if !b.published() {
		return 0
	}
	return b.byteCount
}

// Device returns the device local buffer once the buffer is RESIDENT, nil before.
func (b *UploadableBuffer) Device() *common.Buffer {
	if b.State() != UploadResident {
		return nil
	}
	return b.device
}

// TransferRecorder is the part of a command buffer a promotion records into.
type TransferRecorder interface {
	CopyBuffer(src vk.Buffer, dst vk.Buffer, size vk.DeviceSize)
	BufferBarrier(buf vk.Buffer, srcAccess vk.AccessFlags, dstAccess vk.AccessFlags, srcStage vk.PipelineStageFlags, dstStage vk.PipelineStageFlags)
}

var _ TransferRecorder = common.CommandBuffer{}

// UploadPipeline stages vertex data from any goroutine and promotes it on the render thread. Staging buffers that
// served a promotion are retired to the frame slot that recorded the copy and freed once that slot's fence has been
// waited on again.
type UploadPipeline struct {
	gpu     GPU
	retired [][]*common.Buffer
}

func NewUploadPipeline(gpu GPU, slots int) *UploadPipeline {
	return &UploadPipeline{gpu: gpu, retired: make([][]*common.Buffer, slots)}
}

// Stage copies raw into a new host visible buffer and publishes the buffer as STAGED. Only one Stage call can claim
// a buffer, any other gets *AlreadyLoadedError. A failed Stage hands the buffer back as EMPTY.
func (p *UploadPipeline) Stage(buf *UploadableBuffer, raw []byte, elementCount uint32) error {
	if len(raw) == 0 || elementCount == 0 {
		return &EmptyUploadError{Category: buf.Category}
	}
	if !buf.state.CompareAndSwap(int32(UploadEmpty), int32(UploadStaging)) {
		return &AlreadyLoadedError{Category: buf.Category}
	}
	size := vk.DeviceSize(uint64(len(raw)))
	staging, err := p.gpu.CreateBuffer(
		size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		buf.state.Store(int32(UploadEmpty))
		return errors.Wrapf(err, "create staging buffer for %s", buf.Category)
	}
	if err := p.gpu.WriteBuffer(staging, raw); err != nil {
		p.gpu.DestroyBuffer(staging)
		buf.state.Store(int32(UploadEmpty))
		return errors.Wrapf(err, "fill staging buffer for %s", buf.Category)
	}
	buf.byteCount = size
	buf.elementCount = elementCount
	buf.staging = staging
	buf.state.Store(int32(UploadStaged))
	return nil
}

// Promote records the staging to device copy followed by a barrier that orders it before vertex input. It only
// acts on STAGED buffers and reports whether it recorded anything, so calling it every frame is fine.
func (p *UploadPipeline) Promote(rec TransferRecorder, buf *UploadableBuffer, slot int) (bool, error) {
	if !buf.state.CompareAndSwap(int32(UploadStaged), int32(UploadPromoting)) {
		return false, nil
	}
	dev, err := p.gpu.CreateBuffer(
		buf.byteCount,
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit|vk.BufferUsageVertexBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		buf.state.Store(int32(UploadStaged))
		return false, errors.Wrapf(err, "create device buffer for %s", buf.Category)
	}
	rec.CopyBuffer(buf.staging.Handle, dev.Handle, buf.byteCount)
	rec.BufferBarrier(
		dev.Handle,
		vk.AccessFlags(vk.AccessTransferWriteBit),
		vk.AccessFlags(vk.AccessVertexAttributeReadBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
	)
	buf.device = dev
	p.retired[slot] = append(p.retired[slot], buf.staging)
	buf.staging = nil
	buf.state.Store(int32(UploadResident))
	log.Printf("Promoted %s geometry: %d vertices, %d bytes", buf.Category, buf.elementCount, buf.byteCount)
	return true, nil
}

// Collect frees the staging buffers retired by slot. Only call it after the slot's fence signaled.
func (p *UploadPipeline) Collect(slot int) {
	for _, b := range p.retired[slot] {
		p.gpu.DestroyBuffer(b)
	}
	p.retired[slot] = p.retired[slot][:0]
}

// Release frees whatever buf still owns. The device must be idle.
func (p *UploadPipeline) Release(buf *UploadableBuffer) {
	if buf.staging != nil {
		p.gpu.DestroyBuffer(buf.staging)
		buf.staging = nil
	}
	if buf.device != nil {
		p.gpu.DestroyBuffer(buf.device)
		buf.device = nil
	}
}

func (p *UploadPipeline) Destroy() {
	for slot := range p.retired {
		p.Collect(slot)
	}
}
