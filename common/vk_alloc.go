package common

import (
	"log"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// This Code section contains allocation helper functions. It aims to simplify the allocation of buffers and
// images on the selected device.

type Buffer struct {
	Handle    vk.Buffer
	DeviceMem vk.DeviceMemory
	Size      vk.DeviceSize
	Usage     vk.BufferUsageFlags
	Props     vk.MemoryPropertyFlags
}

func (b *Buffer) HostVisible() bool {
	want := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	return b.Props&want == want
}

func CreateBuffer(dc *Device, size vk.DeviceSize, usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags) (*Buffer, error) {
	// Buffer Handle of fitting Size
	bufferInfo := vk.BufferCreateInfo{
		SType:                 vk.StructureTypeBufferCreateInfo,
		PNext:                 nil,
		Flags:                 0,
		Size:                  size,
		Usage:                 usage,
		SharingMode:           vk.SharingModeExclusive,
		QueueFamilyIndexCount: 0,
		PQueueFamilyIndices:   nil,
	}
	buf, err := VkCreateBuffer(dc.D, &bufferInfo, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "create buffer of %d bytes", size)
	}

	bufRequirements := ReadBufferMemoryRequirements(dc.D, buf)
	memType, err := findMemoryType(dc, bufRequirements.MemoryTypeBits, props)
	if err != nil {
		vk.DestroyBuffer(dc.D, buf, nil)
		return nil, err
	}
	// Allocate device memory
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		PNext:           nil,
		AllocationSize:  bufRequirements.Size,
		MemoryTypeIndex: memType,
	}
	deviceMem, err := VkAllocateMemory(dc.D, &allocInfo, nil)
	if err != nil {
		vk.DestroyBuffer(dc.D, buf, nil)
		return nil, errors.Wrap(err, "allocate buffer memory")
	}

	// Associate allocated memory with buffer Handle
	err = VkBindBufferMemory(dc.D, buf, deviceMem, 0)
	if err != nil {
		vk.DestroyBuffer(dc.D, buf, nil)
		vk.FreeMemory(dc.D, deviceMem, nil)
		return nil, errors.Wrap(err, "bind device memory to buffer handle")
	}

	return &Buffer{
		Handle:    buf,
		DeviceMem: deviceMem,
		Size:      size,
		Usage:     usage,
		Props:     props,
	}, nil
}

// CopyToDeviceBuffer is a convenience method to simplify the process of mapping device memory to CPU memory,
// copy bytes over to the GPU and unmapping the memory again. This requires the buffer to be
// vk.MemoryPropertyHostVisibleBit and vk.MemoryPropertyHostCoherentBit and to match the payload in size.
func CopyToDeviceBuffer(dc *Device, deviceBuf *Buffer, payload []byte) error {
	if !deviceBuf.HostVisible() {
		return errors.New("can't copy to device buffer as buffer is not host visible")
	}
	if deviceBuf.Size != vk.DeviceSize(uint64(len(payload))) {
		return errors.Errorf("can't copy %d bytes into buffer of %d bytes", len(payload), deviceBuf.Size)
	}
	// Map -> copy -> Unmap
	pData, err := VkMapMemory(dc.D, deviceBuf.DeviceMem, 0, deviceBuf.Size, 0)
	if err != nil {
		return errors.Wrap(err, "map device memory")
	}
	vk.Memcopy(pData, payload)
	vk.UnmapMemory(dc.D, deviceBuf.DeviceMem)
	return nil
}

func DestroyBuffer(dc *Device, buffer *Buffer) {
	vk.DestroyBuffer(dc.D, buffer.Handle, nil)
	vk.FreeMemory(dc.D, buffer.DeviceMem, nil)
}

// DepthImage bundles the image, its memory and the view used as a framebuffer attachment.
type DepthImage struct {
	Handle    vk.Image
	DeviceMem vk.DeviceMemory
	View      vk.ImageView
	Format    vk.Format
	Extent    vk.Extent2D
}

func CreateDepthImage(dc *Device, extent vk.Extent2D, format vk.Format) (*DepthImage, error) {
	img, mem, err := CreateImage(
		dc,
		extent.Width,
		extent.Height,
		format,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return nil, err
	}
	view, err := CreateImageViewDC(dc, img, format, vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	if err != nil {
		vk.DestroyImage(dc.D, img, nil)
		vk.FreeMemory(dc.D, mem, nil)
		return nil, err
	}
	return &DepthImage{Handle: img, DeviceMem: mem, View: view, Format: format, Extent: extent}, nil
}

func (d *DepthImage) Destroy(dc *Device) {
	vk.DestroyImageView(dc.D, d.View, nil)
	vk.DestroyImage(dc.D, d.Handle, nil)
	vk.FreeMemory(dc.D, d.DeviceMem, nil)
}

func CreateImage(dc *Device, w uint32, h uint32, format vk.Format, tiling vk.ImageTiling, usage vk.ImageUsageFlags, props vk.MemoryPropertyFlags) (vk.Image, vk.DeviceMemory, error) {
	imageInfo := &vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		PNext:     nil,
		Flags:     0,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  w,
			Height: h,
			Depth:  1,
		},
		MipLevels:             1,
		ArrayLayers:           1,
		Samples:               vk.SampleCount1Bit,
		Tiling:                tiling,
		Usage:                 usage,
		SharingMode:           vk.SharingModeExclusive,
		QueueFamilyIndexCount: 0,
		PQueueFamilyIndices:   nil,
		InitialLayout:         vk.ImageLayoutUndefined,
	}
	img, err := VkCreateImage(dc.D, imageInfo, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create image")
	}

	memRequirements := ReadImageMemoryRequirements(dc.D, img)
	memType, err := findMemoryType(dc, memRequirements.MemoryTypeBits, props)
	if err != nil {
		vk.DestroyImage(dc.D, img, nil)
		return nil, nil, err
	}
	allocInfo := &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		PNext:           nil,
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memType,
	}
	imgMemory, err := VkAllocateMemory(dc.D, allocInfo, nil)
	if err != nil {
		vk.DestroyImage(dc.D, img, nil)
		return nil, nil, errors.Wrap(err, "allocate image device memory")
	}
	if err := VkBindImageMemory(dc.D, img, imgMemory, 0); err != nil {
		vk.DestroyImage(dc.D, img, nil)
		vk.FreeMemory(dc.D, imgMemory, nil)
		return nil, nil, errors.Wrap(err, "bind image memory")
	}
	return img, imgMemory, nil
}

// FindDepthFormat picks the first depth format usable as an optimally tiled attachment.
func FindDepthFormat(dc *Device) (vk.Format, error) {
	candidates := []vk.Format{vk.FormatD32Sfloat, vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint}
	features := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, format := range candidates {
		fProps := ReadFormatProperties(dc.PD, format)
		if fProps.OptimalTilingFeatures&features == features {
			return format, nil
		}
	}
	return vk.FormatUndefined, errors.New("no supported depth format found")
}

func findMemoryType(dc *Device, typeFilter uint32, propFlags vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < dc.PdMemoryProps.MemoryTypeCount; i++ {
		ofType := (typeFilter & (1 << i)) > 0
		hasProperties := dc.PdMemoryProps.MemoryTypes[i].PropertyFlags&propFlags == propFlags
		if ofType && hasProperties {
			return i, nil
		}
	}
	log.Printf("No memory type for filter %032b with flags %d", typeFilter, propFlags)
	return 0, errors.New("failed to find suitable memory type")
}
