package renderer

import (
	vk "github.com/goki/vulkan"
)

// FrameSync is owned by one frame slot. The scheduler is the only user of the handles.
type FrameSync struct {
	ImageAvailable vk.Semaphore
	RenderFinished vk.Semaphore
	InFlight       vk.Fence
}

type FrameSyncSet struct {
	gpu   GPU
	Slots []FrameSync
}

// NewFrameSyncSet creates n slots. Fences start signaled so the first wait on every slot returns immediately.
func NewFrameSyncSet(gpu GPU, n int) (*FrameSyncSet, error) {
	s := &FrameSyncSet{gpu: gpu, Slots: make([]FrameSync, 0, n)}
	for i := 0; i < n; i++ {
		ias, err := gpu.CreateSemaphore()
		if err != nil {
			s.Destroy()
			return nil, deviceCreation("create image available semaphore", err)
		}
		rfs, err := gpu.CreateSemaphore()
		if err != nil {
			gpu.DestroySemaphore(ias)
			s.Destroy()
			return nil, deviceCreation("create render finished semaphore", err)
		}
		iff, err := gpu.CreateFence(true)
		if err != nil {
			gpu.DestroySemaphore(ias)
			gpu.DestroySemaphore(rfs)
			s.Destroy()
			return nil, deviceCreation("create in flight fence", err)
		}
		s.Slots = append(s.Slots, FrameSync{ImageAvailable: ias, RenderFinished: rfs, InFlight: iff})
	}
	return s, nil
}

func (s *FrameSyncSet) Len() int {
	return len(s.Slots)
}

func (s *FrameSyncSet) Destroy() {
	for _, f := range s.Slots {
		s.gpu.DestroySemaphore(f.ImageAvailable)
		s.gpu.DestroySemaphore(f.RenderFinished)
		s.gpu.DestroyFence(f.InFlight)
	}
	s.Slots = nil
}
