package common

import (
	vk "github.com/goki/vulkan"
)

// Utility functions providing slightly altered versions of the raw go bindings and wrapped functions. These altered
// versions of common functions should only hide very obvious default values that will not need to change most of the
// time. Each simplification function should specify the simplification it does. Names are prefixed with VKS which
// stands for (V)ul(K)an (S)implified.

// VKSAllocateCommandBuffers simplifies vk.AllocateCommandBuffers(...) by assuming the number of desired CommandBuffers
// to create is provided in the vk.CommandBufferAllocateInfo parameter.
func VKSAllocateCommandBuffers(device vk.Device, pAllocateInfo *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, error) {
	var buffers = make([]vk.CommandBuffer, pAllocateInfo.CommandBufferCount)
	err := vk.Error(vk.AllocateCommandBuffers(device, pAllocateInfo, buffers))
	if err != nil {
		return nil, err
	}
	return buffers, nil
}

// VKSCreateCommandPool implicitly instantiates the CreateInfo for the command pool based on the provided arguments.
func VKSCreateCommandPool(device vk.Device, flags vk.CommandPoolCreateFlags, QueueFamilyIndex uint32) (vk.CommandPool, error) {
	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		PNext:            nil,
		Flags:            flags,
		QueueFamilyIndex: QueueFamilyIndex,
	}
	return VkCreateCommandPool(device, &poolInfo, nil)
}

// VKSCreateUniformSetLayout creates a layout with a single uniform buffer at binding 0 visible to all graphics stages.
func VKSCreateUniformSetLayout(device vk.Device) (vk.DescriptorSetLayout, error) {
	uboLayoutBinding := vk.DescriptorSetLayoutBinding{
		Binding:            0,
		DescriptorType:     vk.DescriptorTypeUniformBuffer,
		DescriptorCount:    1,
		StageFlags:         vk.ShaderStageFlags(vk.ShaderStageAllGraphics),
		PImmutableSamplers: nil,
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		PNext:        nil,
		Flags:        0,
		BindingCount: 1,
		PBindings:    []vk.DescriptorSetLayoutBinding{uboLayoutBinding},
	}
	return VkCreateDescriptorSetLayout(device, &layoutInfo, nil)
}

// VKSCreateUniformPool sizes a pool for count sets holding one uniform buffer each.
func VKSCreateUniformPool(device vk.Device, count uint32) (vk.DescriptorPool, error) {
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PNext:         nil,
		Flags:         0,
		MaxSets:       count,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: count,
		}},
	}
	return VkCreateDescriptorPool(device, &poolInfo, nil)
}

// VKSWriteUniformSet points binding 0 of the set at the whole buffer.
func VKSWriteUniformSet(device vk.Device, set vk.DescriptorSet, buf vk.Buffer, size vk.DeviceSize) {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		PNext:           nil,
		DstSet:          set,
		DstBinding:      0,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo:     []vk.DescriptorBufferInfo{{Buffer: buf, Offset: 0, Range: size}},
	}
	vk.UpdateDescriptorSets(device, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}
