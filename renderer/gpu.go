package renderer

import (
	"triangles_vk/common"

	vk "github.com/goki/vulkan"
)

// GPU is the part of the logical device the frame engine talks to. *common.Device is the implementation used by the
// application, tests run the engine against an in-memory fake.
type GPU interface {
	CreateSemaphore() (vk.Semaphore, error)
	CreateFence(signaled bool) (vk.Fence, error)
	DestroySemaphore(s vk.Semaphore)
	DestroyFence(f vk.Fence)
	WaitForFence(f vk.Fence, timeout uint64) error
	ResetFence(f vk.Fence) error

	Submit(q vk.Queue, batch common.SubmitBatch, fence vk.Fence) error
	WaitIdle() error

	CreateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags) (*common.Buffer, error)
	WriteBuffer(b *common.Buffer, payload []byte) error
	MapBuffer(b *common.Buffer) ([]byte, error)
	DestroyBuffer(b *common.Buffer)

	Queues() common.Queues
}

var _ GPU = (*common.Device)(nil)
