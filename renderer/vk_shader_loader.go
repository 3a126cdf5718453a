package renderer

import (
	"log"
	"os"

	"triangles_vk/common"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

//go:generate glslc ../shaders/triangles.vert -o ../shaders_spv/triangles.vert.spv
//go:generate glslc ../shaders/triangles.frag -o ../shaders_spv/triangles.frag.spv
//go:generate glslc ../shaders/wireframe.vert -o ../shaders_spv/wireframe.vert.spv
//go:generate glslc ../shaders/wireframe.frag -o ../shaders_spv/wireframe.frag.spv

// LoadVert reads a '.spv' file with the expectation of it containing a vertex shader for later use in a
// render pipeline. For this, a shader module (containing the shader code) and its vk.PipelineShaderStageCreateInfo
// is returned. Which is required to bind the shader to the pipeline.
func LoadVert(d vk.Device, path string) (vk.ShaderModule, vk.PipelineShaderStageCreateInfo, error) {
	return loadStage(d, path, vk.ShaderStageVertexBit)
}

// LoadFrag is LoadVert for fragment shaders.
func LoadFrag(d vk.Device, path string) (vk.ShaderModule, vk.PipelineShaderStageCreateInfo, error) {
	return loadStage(d, path, vk.ShaderStageFragmentBit)
}

func loadStage(d vk.Device, path string, stage vk.ShaderStageFlagBits) (vk.ShaderModule, vk.PipelineShaderStageCreateInfo, error) {
	mod, err := readShaderCode(d, path)
	if err != nil {
		return nil, vk.PipelineShaderStageCreateInfo{}, err
	}
	stageInfo := vk.PipelineShaderStageCreateInfo{
		SType:               vk.StructureTypePipelineShaderStageCreateInfo,
		PNext:               nil,
		Flags:               0,
		Stage:               stage,
		Module:              mod,
		PName:               "main\x00", // entrypoint -> function name in the shader
		PSpecializationInfo: nil,
	}
	return mod, stageInfo, nil
}

// DeleteShaderMod discards a shader module. As vk.ShaderModule is only meant as a container to move the shader code
// onto device memory, it can be destroyed right after creating a shader stage when binding to a rendering pipeline.
func DeleteShaderMod(d vk.Device, mod vk.ShaderModule) {
	vk.DestroyShaderModule(d, mod, nil)
}

func readShaderCode(d vk.Device, shaderFile string) (vk.ShaderModule, error) {
	shaderCodeB, err := os.ReadFile(shaderFile)
	if err != nil {
		return nil, errors.Wrapf(err, "read shader file '%s'", shaderFile)
	}
	if len(shaderCodeB) == 0 || len(shaderCodeB)%4 != 0 {
		return nil, errors.Errorf("shader file '%s' is not SPIR-V: %d bytes", shaderFile, len(shaderCodeB))
	}
	log.Printf("Read shader file (%s) of size: %dByte", shaderFile, len(shaderCodeB))

	createInfo := &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		PNext:    nil,
		Flags:    0,
		CodeSize: uint64(len(shaderCodeB)),
		PCode:    common.AsUint32Arr(shaderCodeB),
	}
	module, err := common.VkCreateShaderModule(d, createInfo, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "create shader module '%s'", shaderFile)
	}
	return module, nil
}
