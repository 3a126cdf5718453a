package common

import (
	"log"
	"math"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

const ENABLE_VALIDATION = true

var VALIDATION_LAYERS = []string{
	"VK_LAYER_KHRONOS_validation",
}

var DEVICE_EXTENSIONS = []string{
	"VK_KHR_swapchain",
}

// Device represents the interfacing objects between the SDL window, the Hardware running Vulkan
// and the rest of the rendering engine. Its main purpose is to encapsulate the corresponding objects
// to make the initialization and teardown of a given application neater.
type Device struct {
	PD            vk.PhysicalDevice
	PdProps       vk.PhysicalDeviceProperties
	PdMemoryProps vk.PhysicalDeviceMemoryProperties
	QFamilies     QueueFamilyIndices

	D      vk.Device
	queues Queues
}

// SubmitBatch is everything one frame hands to the graphics queue in a single vkQueueSubmit.
type SubmitBatch struct {
	Wait      vk.Semaphore
	WaitStage vk.PipelineStageFlags
	Buffers   []vk.CommandBuffer
	Signal    vk.Semaphore
}

func NewDevice(w *Window) (*Device, error) {
	dc := &Device{}
	if err := dc.selectPhysicalDevice(*w.Inst, *w.Surf); err != nil {
		return nil, err
	}
	if err := dc.createLogicalDevice(); err != nil {
		return nil, err
	}
	return dc, nil
}

// Destroy all objects created by itself. It does not destroy the sdl.window object provided for instantiation.
func (dc *Device) Destroy() {
	vk.DestroyDevice(dc.D, nil)
}

func (dc *Device) Queues() Queues {
	return dc.queues
}

func (dc *Device) selectPhysicalDevice(in vk.Instance, su vk.Surface) error {
	availableDevices, err := ReadPhysicalDevices(in)
	if err != nil {
		return err
	}
	// The first suitable device wins, ranking several GPUs against each other is not attempted.
	var pd vk.PhysicalDevice
	for i := range availableDevices {
		if isDeviceSuitable(availableDevices[i], su) {
			pd = availableDevices[i]
			break
		}
	}
	if pd == nil {
		return errors.New("no suitable physical device (GPU) found")
	}
	dc.PD = pd

	qf, err := findQueueFamilies(dc.PD, su)
	if err != nil {
		return errors.Wrap(err, "read queue families from selected device")
	}
	dc.QFamilies = qf
	dc.PdProps = ReadPhysicalDeviceProperties(dc.PD)
	dc.PdProps.Limits.Deref()
	dc.PdMemoryProps = ReadDeviceMemoryProperties(dc.PD)
	log.Printf("Selected device %s", vk.ToString(dc.PdProps.DeviceName[:]))
	return nil
}

func isDeviceSuitable(pd vk.PhysicalDevice, su vk.Surface) bool {
	pdProps := ReadPhysicalDeviceProperties(pd)
	pdFeatures := ReadPhysicalDeviceFeatures(pd)
	log.Printf("Physical device\n%s", DescribePhysicalDevice(pdProps, ReadQueueFamilies(pd)))

	if _, err := findQueueFamilies(pd, su); err != nil {
		log.Printf("Failed to get required queue families: %s", err)
		return false
	}
	// Wireframe categories are drawn with a line polygon mode.
	if pdFeatures.FillModeNonSolid != vk.True {
		return false
	}
	if !checkDeviceExtensionSupport(pd, DEVICE_EXTENSIONS) {
		return false
	}
	return checkSwapChainAdequacy(pd, su)
}

func (dc *Device) createLogicalDevice() error {
	queueInfos := dc.QFamilies.toQueueCreateInfos()
	deviceFeatures := vk.PhysicalDeviceFeatures{
		FillModeNonSolid: vk.True,
	}
	deviceCreatInfo := &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   nil,
		Flags:                   0,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledLayerCount:       0,
		PpEnabledLayerNames:     nil,
		EnabledExtensionCount:   uint32(len(DEVICE_EXTENSIONS)),
		PpEnabledExtensionNames: TerminatedStrs(DEVICE_EXTENSIONS),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
	}
	if ENABLE_VALIDATION {
		deviceCreatInfo.EnabledLayerCount = uint32(len(VALIDATION_LAYERS))
		deviceCreatInfo.PpEnabledLayerNames = TerminatedStrs(VALIDATION_LAYERS)
	}

	var err error
	dc.D, err = VkCreateDevice(dc.PD, deviceCreatInfo, nil)
	if err != nil {
		return errors.Wrap(err, "create logical device")
	}
	graphics, err := VkGetDeviceQueue(dc.D, dc.QFamilies.GraphicsFamily, 0)
	if err != nil {
		return errors.Wrap(err, "get 'graphics' device queue")
	}
	gq := DeviceQueue{Queue: graphics, Family: dc.QFamilies.GraphicsFamily, Index: 0}
	if dc.QFamilies.Shared() {
		dc.queues = NewSharedQueues(gq)
	} else {
		present, err := VkGetDeviceQueue(dc.D, dc.QFamilies.PresentFamily, 0)
		if err != nil {
			return errors.Wrap(err, "get 'present' device queue")
		}
		dc.queues = NewSeparateQueues(gq, DeviceQueue{Queue: present, Family: dc.QFamilies.PresentFamily, Index: 0})
	}
	log.Printf("Created logical device with %s graphics/present queues", dc.queues.Kind)
	return nil
}

func checkDeviceExtensionSupport(pd vk.PhysicalDevice, requiredDeviceExt []string) bool {
	supportedExtNames := ReadDeviceExtensionNames(pd)
	log.Printf("Required device extensions: %v, available: %d", requiredDeviceExt, len(supportedExtNames))
	return IsSubset(requiredDeviceExt, supportedExtNames)
}

// Synchronization and submission

func (dc *Device) CreateSemaphore() (vk.Semaphore, error) {
	return VkCreateSemaphore(dc.D, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil)
}

func (dc *Device) CreateFence(signaled bool) (vk.Fence, error) {
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	return VkCreateFence(dc.D, &info, nil)
}

func (dc *Device) DestroySemaphore(s vk.Semaphore) {
	vk.DestroySemaphore(dc.D, s, nil)
}

func (dc *Device) DestroyFence(f vk.Fence) {
	vk.DestroyFence(dc.D, f, nil)
}

func (dc *Device) WaitForFence(f vk.Fence, timeout uint64) error {
	return vk.Error(vk.WaitForFences(dc.D, 1, []vk.Fence{f}, vk.True, timeout))
}

func (dc *Device) ResetFence(f vk.Fence) error {
	return vk.Error(vk.ResetFences(dc.D, 1, []vk.Fence{f}))
}

func (dc *Device) Submit(q vk.Queue, batch SubmitBatch, fence vk.Fence) error {
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		PNext:                nil,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{batch.Wait},
		PWaitDstStageMask:    []vk.PipelineStageFlags{batch.WaitStage},
		CommandBufferCount:   uint32(len(batch.Buffers)),
		PCommandBuffers:      batch.Buffers,
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{batch.Signal},
	}
	if batch.Wait == nil {
		submitInfo.WaitSemaphoreCount = 0
		submitInfo.PWaitSemaphores = nil
		submitInfo.PWaitDstStageMask = nil
	}
	if batch.Signal == nil {
		submitInfo.SignalSemaphoreCount = 0
		submitInfo.PSignalSemaphores = nil
	}
	return vk.Error(vk.QueueSubmit(q, 1, []vk.SubmitInfo{submitInfo}, fence))
}

func (dc *Device) WaitIdle() error {
	return vk.Error(vk.DeviceWaitIdle(dc.D))
}

// Buffers

func (dc *Device) CreateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags) (*Buffer, error) {
	return CreateBuffer(dc, size, usage, props)
}

func (dc *Device) WriteBuffer(b *Buffer, payload []byte) error {
	return CopyToDeviceBuffer(dc, b, payload)
}

// MapBuffer maps the whole buffer and keeps it mapped. Freeing the memory in DestroyBuffer unmaps it implicitly.
func (dc *Device) MapBuffer(b *Buffer) ([]byte, error) {
	if !b.HostVisible() {
		return nil, errors.New("buffer memory is not host visible")
	}
	if uint64(b.Size) > math.MaxInt32 {
		return nil, errors.Errorf("buffer of %d bytes is too large to map", b.Size)
	}
	pData, err := VkMapMemory(dc.D, b.DeviceMem, 0, b.Size, 0)
	if err != nil {
		return nil, errors.Wrap(err, "map buffer memory")
	}
	return unsafe.Slice((*byte)(pData), int(b.Size)), nil
}

func (dc *Device) DestroyBuffer(b *Buffer) {
	DestroyBuffer(dc, b)
}
