package renderer

import (
	"triangles_vk/common"
	"triangles_vk/model"

	vk "github.com/goki/vulkan"
)

// UniformStream keeps one persistently mapped uniform buffer per frame slot. A slot's buffer is only read by work
// submitted for that slot, so writing it after the slot's fence wait is safe.
type UniformStream struct {
	gpu     GPU
	buffers []*common.Buffer
	mapped  [][]byte
}

func NewUniformStream(gpu GPU, slots int) (*UniformStream, error) {
	u := &UniformStream{gpu: gpu}
	for i := 0; i < slots; i++ {
		buf, err := gpu.CreateBuffer(
			model.SizeOfUniformFrame(),
			vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
		)
		if err != nil {
			u.Destroy()
			return nil, deviceCreation("create uniform buffer", err)
		}
		mem, err := gpu.MapBuffer(buf)
		if err != nil {
			gpu.DestroyBuffer(buf)
			u.Destroy()
			return nil, deviceCreation("map uniform buffer", err)
		}
		u.buffers = append(u.buffers, buf)
		u.mapped = append(u.mapped, mem)
	}
	return u, nil
}

func (u *UniformStream) Write(slot int, frame *model.UniformFrame) {
	copy(u.mapped[slot], frame.Bytes())
}

func (u *UniformStream) Buffer(slot int) *common.Buffer {
	return u.buffers[slot]
}

func (u *UniformStream) Len() int {
	return len(u.buffers)
}

func (u *UniformStream) Destroy() {
	for _, b := range u.buffers {
		u.gpu.DestroyBuffer(b)
	}
	u.buffers = nil
	u.mapped = nil
}
