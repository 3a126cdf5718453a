package renderer

import (
	"log"
	"math"
	"time"

	"triangles_vk/common"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

type SlotState int

const (
	SlotIdle SlotState = iota
	SlotWaitingFence
	SlotAcquiring
	SlotRecording
	SlotSubmitted
	SlotPresenting
)

func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "IDLE"
	case SlotWaitingFence:
		return "WAITING_FENCE"
	case SlotAcquiring:
		return "ACQUIRING"
	case SlotRecording:
		return "RECORDING"
	case SlotSubmitted:
		return "SUBMITTED"
	case SlotPresenting:
		return "PRESENTING"
	default:
		return "UNKNOWN"
	}
}

// FrameRecorder fills the command buffer of a slot for the acquired image and returns it ready for submission.
type FrameRecorder interface {
	RecordFrame(slot int, imageIdx uint32, extent vk.Extent2D) (vk.CommandBuffer, error)
}

// UniformWriter rewrites the uniform buffer of a slot right before submission.
type UniformWriter interface {
	WriteUniforms(slot int, extent vk.Extent2D)
}

// Updater advances the scene by the time since the previous frame. It is not called for the first frame.
type Updater interface {
	Update(dt time.Duration)
}

// Scheduler drives frames through the slots round robin. It must only be used from the render thread.
type Scheduler struct {
	gpu      GPU
	syncs    *FrameSyncSet
	swap     *SwapchainLifecycle
	uploads  *UploadPipeline
	draw     FrameRecorder
	overlay  FrameRecorder
	uniforms UniformWriter
	updater  Updater

	Timeout uint64

	slot      int
	states    []SlotState
	submitted []bool
	inFlight  int
	peak      int
	frames    uint64
	skipped   uint64
	last      time.Time
}

// NewScheduler wires the frame engine. overlay, uniforms and updater may be nil.
func NewScheduler(gpu GPU, syncs *FrameSyncSet, swap *SwapchainLifecycle, uploads *UploadPipeline, draw FrameRecorder, overlay FrameRecorder, uniforms UniformWriter, updater Updater) *Scheduler {
	n := syncs.Len()
	return &Scheduler{
		gpu:       gpu,
		syncs:     syncs,
		swap:      swap,
		uploads:   uploads,
		draw:      draw,
		overlay:   overlay,
		uniforms:  uniforms,
		updater:   updater,
		Timeout:   math.MaxUint64,
		states:    make([]SlotState, n),
		submitted: make([]bool, n),
	}
}

func (s *Scheduler) Slot() int {
	return s.slot
}

func (s *Scheduler) State(slot int) SlotState {
	return s.states[slot]
}

// InFlight is the number of submissions whose fence has not been waited on yet.
func (s *Scheduler) InFlight() int {
	return s.inFlight
}

// PeakInFlight is the highest InFlight seen so far.
func (s *Scheduler) PeakInFlight() int {
	return s.peak
}

// Frames counts presented frames, Skipped counts frames dropped because the swap chain was stale.
func (s *Scheduler) Frames() uint64 {
	return s.frames
}

func (s *Scheduler) Skipped() uint64 {
	return s.skipped
}

// Frame runs one pass of the slot state machine. Stale or suboptimal swap chains are handled here by rebuilding,
// every returned error is fatal for the loop.
func (s *Scheduler) Frame() error {
	slot := s.slot
	fs := s.syncs.Slots[slot]
	defer func() {
		s.states[slot] = SlotIdle
		s.slot = (slot + 1) % len(s.states)
	}()

	s.states[slot] = SlotWaitingFence
	if err := s.gpu.WaitForFence(fs.InFlight, s.Timeout); err != nil {
		return errors.Wrapf(err, "wait for in flight fence of slot %d", slot)
	}
	if s.submitted[slot] {
		s.submitted[slot] = false
		s.inFlight--
	}
	s.uploads.Collect(slot)

	s.states[slot] = SlotAcquiring
	imgIdx, err := s.swap.Acquire(fs.ImageAvailable, s.Timeout)
	if err != nil {
		if !IsStale(err) {
			return errors.Wrap(err, "acquire swap chain image")
		}
		// Nothing was submitted so the fence stays signaled for the next use of this slot. The rebuild covers a
		// pending resize as well.
		s.skipped++
		s.swap.ConsumeResize()
		return s.swap.Rebuild()
	}
	extent := s.swap.Current().Extent()

	now := time.Now()
	if !s.last.IsZero() && s.updater != nil {
		s.updater.Update(now.Sub(s.last))
	}
	s.last = now

	s.states[slot] = SlotRecording
	buffers := make([]vk.CommandBuffer, 0, 2)
	cb, err := s.draw.RecordFrame(slot, imgIdx, extent)
	if err != nil {
		return errors.Wrap(err, "record draw commands")
	}
	buffers = append(buffers, cb)
	if s.overlay != nil {
		cb, err := s.overlay.RecordFrame(slot, imgIdx, extent)
		if err != nil {
			return errors.Wrap(err, "record overlay commands")
		}
		buffers = append(buffers, cb)
	}
	if s.uniforms != nil {
		s.uniforms.WriteUniforms(slot, extent)
	}

	// Resetting only now keeps the fence signaled on every early return above.
	if err := s.gpu.ResetFence(fs.InFlight); err != nil {
		return errors.Wrapf(err, "reset in flight fence of slot %d", slot)
	}
	batch := common.SubmitBatch{
		Wait:      fs.ImageAvailable,
		WaitStage: vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		Buffers:   buffers,
		Signal:    fs.RenderFinished,
	}
	if err := s.gpu.Submit(s.gpu.Queues().Graphics().Queue, batch, fs.InFlight); err != nil {
		return errors.Wrap(err, "submit frame")
	}
	s.states[slot] = SlotSubmitted
	s.submitted[slot] = true
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	if s.inFlight > len(s.states) {
		return errors.Errorf("%d frames in flight with only %d slots", s.inFlight, len(s.states))
	}

	s.states[slot] = SlotPresenting
	rebuild := false
	if err := s.swap.Present(s.gpu.Queues().Present().Queue, imgIdx, fs.RenderFinished); err != nil {
		if !IsStale(err) {
			return errors.Wrap(err, "present swap chain image")
		}
		rebuild = true
	}
	s.frames++
	if s.swap.ConsumeResize() {
		rebuild = true
	}
	if rebuild {
		return s.swap.Rebuild()
	}
	return nil
}

// Drain waits for all slots and releases retired staging memory. Used before teardown.
func (s *Scheduler) Drain() error {
	if err := s.gpu.WaitIdle(); err != nil {
		return errors.Wrap(err, "wait for device idle")
	}
	for slot := range s.submitted {
		if s.submitted[slot] {
			s.submitted[slot] = false
			s.inFlight--
		}
		s.uploads.Collect(slot)
	}
	log.Printf("Drained frame scheduler after %d frames (%d skipped)", s.frames, s.skipped)
	return nil
}
