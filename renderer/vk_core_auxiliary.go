package renderer

import (
	com "triangles_vk/common"
	"triangles_vk/model"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// These functions are auxiliary functions that abstract from the raw Vulkan API by assuming some reasonable
// defaults where possible. These differ from the VKS function in vk_simplifications.go by being tied to a given
// Core Struct and are closer to helper function in the class than being a general abstraction of the API.

// createDescriptorSets creates one set per frame slot, each pointing at that slot's uniform buffer.
func (c *Core) createDescriptorSets() error {
	var err error
	c.descriptorSetLayout, err = com.VKSCreateUniformSetLayout(c.device.D)
	if err != nil {
		return errors.Wrap(err, "create descriptor set layout")
	}
	c.descriptorPool, err = com.VKSCreateUniformPool(c.device.D, MAX_FRAMES_IN_FLIGHT)
	if err != nil {
		return errors.Wrap(err, "create descriptor pool")
	}

	layouts := make([]vk.DescriptorSetLayout, MAX_FRAMES_IN_FLIGHT)
	for i := range layouts {
		layouts[i] = c.descriptorSetLayout
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		PNext:              nil,
		DescriptorPool:     c.descriptorPool,
		DescriptorSetCount: MAX_FRAMES_IN_FLIGHT,
		PSetLayouts:        layouts,
	}
	c.descriptorSets, err = com.VkAllocateDescriptorSets(c.device.D, &allocInfo)
	if err != nil {
		return errors.Wrap(err, "allocate descriptor sets")
	}
	for i, set := range c.descriptorSets {
		com.VKSWriteUniformSet(c.device.D, set, c.uniforms.Buffer(i).Handle, model.SizeOfUniformFrame())
	}
	return nil
}

// createCommandBuffers allocates two primary buffers per frame slot out of one resettable pool: the first half records
// primitives, the second half the overlay.
func (c *Core) createCommandBuffers() ([]Recorder, []Recorder, error) {
	var err error
	c.commandPool, err = com.VKSCreateCommandPool(
		c.device.D,
		vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		c.device.QFamilies.GraphicsFamily,
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create command pool")
	}
	raw, err := com.VKAllocateCommandBuffersPrimary(c.device.D, c.commandPool, 2*MAX_FRAMES_IN_FLIGHT)
	if err != nil {
		return nil, nil, errors.Wrap(err, "allocate command buffers")
	}
	prim := make([]Recorder, MAX_FRAMES_IN_FLIGHT)
	overlay := make([]Recorder, MAX_FRAMES_IN_FLIGHT)
	for i := 0; i < MAX_FRAMES_IN_FLIGHT; i++ {
		prim[i] = com.CommandBuffer{Handle: raw[i]}
		overlay[i] = com.CommandBuffer{Handle: raw[MAX_FRAMES_IN_FLIGHT+i]}
	}
	return prim, overlay, nil
}
