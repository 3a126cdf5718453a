package common

import (
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"
)

// Formatting helpers used while probing devices. Nothing here is needed for rendering, it only makes the startup
// log readable when several GPUs or queue families are present.

// DescribePhysicalDevice renders one device with its queue families as an indented block.
func DescribePhysicalDevice(pdProps vk.PhysicalDeviceProperties, qFamilies []vk.QueueFamilyProperties) string {
	b := strings.Builder{}
	b.WriteString(fmt.Sprintf("%s\n|_%s\n", vk.ToString(pdProps.DeviceName[:]), describeProperties(pdProps)))
	for i := range qFamilies {
		prefix := "| "
		if i == len(qFamilies)-1 {
			prefix = "|_"
		}
		b.WriteString(fmt.Sprintf("%sQfamily[%d] %s\n", prefix, i, describeQueueFamily(qFamilies[i])))
	}
	return b.String()
}

func describeProperties(pdProps vk.PhysicalDeviceProperties) string {
	vendor := vk.VendorId(pdProps.VendorID)
	return fmt.Sprintf("api: %s, driver: %s, vendor: %s, type: %s",
		vk.Version(pdProps.ApiVersion).String(),
		DriverVersionString(vendor, pdProps.DriverVersion),
		VendorName(vendor),
		DeviceTypeName(pdProps.DeviceType),
	)
}

func describeQueueFamily(q vk.QueueFamilyProperties) string {
	return fmt.Sprintf("count: %2d, flags: %v", q.QueueCount, QueueFlagNames(q.QueueFlags))
}

// VendorName maps the handful of PCI vendor ids drivers report in practice.
func VendorName(v vk.VendorId) string {
	switch v {
	case 0x1002:
		return "AMD"
	case 0x1010:
		return "ImgTec"
	case 0x10DE:
		return "NVIDIA"
	case 0x13B5:
		return "ARM"
	case 0x5143:
		return "Qualcomm"
	case 0x8086:
		return "INTEL"
	case 0x10005:
		return "Mesa"
	default:
		return "unknown"
	}
}

// DriverVersionString decodes the vendor specific driver version. NVIDIA packs it differently from everyone else.
func DriverVersionString(vendor vk.VendorId, raw uint32) string {
	if vendor == 0x10DE {
		return fmt.Sprintf("%d.%d.%d.%d", (raw>>22)&0x3ff, (raw>>14)&0x0ff, (raw>>6)&0x0ff, raw&0x003f)
	}
	return vk.Version(raw).String()
}

func DeviceTypeName(dt vk.PhysicalDeviceType) string {
	switch dt {
	case vk.PhysicalDeviceTypeOther:
		return "other"
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated Gpu"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete Gpu"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual Gpu"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	default:
		return "unknown"
	}
}

func QueueFlagNames(bits vk.QueueFlags) []string {
	var names []string
	flags := vk.QueueFlagBits(bits)
	if flags&vk.QueueGraphicsBit > 0 {
		names = append(names, "VK_QUEUE_GRAPHICS_BIT")
	}
	if flags&vk.QueueComputeBit > 0 {
		names = append(names, "VK_QUEUE_COMPUTE_BIT")
	}
	if flags&vk.QueueTransferBit > 0 {
		names = append(names, "VK_QUEUE_TRANSFER_BIT")
	}
	if flags&vk.QueueSparseBindingBit > 0 {
		names = append(names, "VK_QUEUE_SPARSE_BINDING_BIT")
	}
	if flags&vk.QueueProtectedBit > 0 {
		names = append(names, "VK_QUEUE_PROTECTED_BIT")
	}
	return names
}

// ExtentString is used in log lines whenever a swap chain generation changes.
func ExtentString(e vk.Extent2D) string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}
