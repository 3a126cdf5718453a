package common

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// QueueFamilyIndices holds the chosen family for graphics and for presentation. Both point at the same family when
// the device offers one that can do both.
type QueueFamilyIndices struct {
	GraphicsFamily uint32
	PresentFamily  uint32
}

func (q QueueFamilyIndices) Shared() bool {
	return q.GraphicsFamily == q.PresentFamily
}

// findQueueFamilies lists every graphics capable and every present capable family and picks the pair.
func findQueueFamilies(pd vk.PhysicalDevice, surf vk.Surface) (QueueFamilyIndices, error) {
	qFamilies := ReadQueueFamilies(pd)
	var graphics, present []uint32
	for i := range qFamilies {
		if isBitSet(qFamilies[i], vk.QueueGraphicsBit) {
			graphics = append(graphics, uint32(i))
		}
		var presentSupport vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(pd, uint32(i), surf, &presentSupport)
		if presentSupport > 0 {
			present = append(present, uint32(i))
		}
	}
	return SelectQueueFamilies(graphics, present)
}

// SelectQueueFamilies prefers a family found in both lists so a single queue can serve graphics and presentation.
// Otherwise, the first entry of each list is used.
func SelectQueueFamilies(graphics []uint32, present []uint32) (QueueFamilyIndices, error) {
	if len(graphics) == 0 {
		return QueueFamilyIndices{}, errors.New("unable to find graphics capable queue family")
	}
	if len(present) == 0 {
		return QueueFamilyIndices{}, errors.New("unable to find present capable queue family for given surface")
	}
	for _, g := range graphics {
		if inList(g, present) {
			return QueueFamilyIndices{GraphicsFamily: g, PresentFamily: g}, nil
		}
	}
	return QueueFamilyIndices{GraphicsFamily: graphics[0], PresentFamily: present[0]}, nil
}

func isBitSet(qFamily vk.QueueFamilyProperties, bit vk.QueueFlagBits) bool {
	return vk.QueueFlagBits(qFamily.QueueFlags)&bit > 0
}

func (q QueueFamilyIndices) toQueueCreateInfos() []vk.DeviceQueueCreateInfo {
	uniqIndices := []uint32{q.GraphicsFamily}
	if !q.Shared() {
		uniqIndices = append(uniqIndices, q.PresentFamily)
	}
	infos := make([]vk.DeviceQueueCreateInfo, len(uniqIndices))
	for i := range uniqIndices {
		infos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			PNext:            nil,
			Flags:            0,
			QueueFamilyIndex: uniqIndices[i],
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}
	return infos
}

func inList(e uint32, l []uint32) bool {
	for i := range l {
		if l[i] == e {
			return true
		}
	}
	return false
}

// DeviceQueue is a retrieved queue together with where it came from.
type DeviceQueue struct {
	Queue  vk.Queue
	Family uint32
	Index  uint32
}

type QueueKind int

const (
	SharedQueue QueueKind = iota
	SeparateQueues
)

func (k QueueKind) String() string {
	switch k {
	case SharedQueue:
		return "shared"
	case SeparateQueues:
		return "separate"
	default:
		return "unknown"
	}
}

// Queues is decided once when the logical device is created. With SharedQueue only graphics is populated.
type Queues struct {
	Kind     QueueKind
	graphics DeviceQueue
	present  DeviceQueue
}

func NewSharedQueues(q DeviceQueue) Queues {
	return Queues{Kind: SharedQueue, graphics: q}
}

func NewSeparateQueues(graphics DeviceQueue, present DeviceQueue) Queues {
	return Queues{Kind: SeparateQueues, graphics: graphics, present: present}
}

func (q Queues) Graphics() DeviceQueue {
	return q.graphics
}

func (q Queues) Present() DeviceQueue {
	if q.Kind == SharedQueue {
		return q.graphics
	}
	return q.present
}

// Families returns the family indices to use for concurrent image sharing, nil when a single family is used.
func (q Queues) Families() []uint32 {
	if q.Kind == SharedQueue || q.graphics.Family == q.present.Family {
		return nil
	}
	return []uint32{q.graphics.Family, q.present.Family}
}
