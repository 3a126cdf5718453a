package renderer

import (
	"log"

	"triangles_vk/common"
	"triangles_vk/model"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

// Pipelines share one layout: a single uniform buffer at set 0.
type Pipelines struct {
	device    vk.Device
	Layout    vk.PipelineLayout
	Triangles vk.Pipeline
	Wireframe vk.Pipeline
}

type pipelineConfig struct {
	name        string
	vert, frag  string
	binding     vk.VertexInputBindingDescription
	attributes  []vk.VertexInputAttributeDescription
	topology    vk.PrimitiveTopology
	polygonMode vk.PolygonMode
	cullMode    vk.CullModeFlagBits
	frontFace   vk.FrontFace
}

func NewPipelines(d vk.Device, renderPass vk.RenderPass, setLayout vk.DescriptorSetLayout) (*Pipelines, error) {
	p := &Pipelines{device: d}

	// Pipeline layouts are used to pass uniforms as they will be specified during pipeline creation
	pipelineLayoutInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		PNext:                  nil,
		Flags:                  0,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{setLayout},
		PushConstantRangeCount: 0,
		PPushConstantRanges:    nil,
	}
	layout, err := common.VkCreatePipelineLayout(d, &pipelineLayoutInfo, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create pipeline layout")
	}
	p.Layout = layout

	p.Triangles, err = p.create(renderPass, pipelineConfig{
		name:        "triangles",
		vert:        TRIANGLES_VERT_SHADER,
		frag:        TRIANGLES_FRAG_SHADER,
		binding:     model.TriangleBindingDescription(),
		attributes:  model.TriangleAttributeDescriptions(),
		topology:    vk.PrimitiveTopologyTriangleList,
		polygonMode: vk.PolygonModeFill,
		cullMode:    vk.CullModeFrontBit,
		frontFace:   vk.FrontFaceClockwise,
	})
	if err != nil {
		p.Destroy()
		return nil, err
	}
	p.Wireframe, err = p.create(renderPass, pipelineConfig{
		name:        "wireframe",
		vert:        WIREFRAME_VERT_SHADER,
		frag:        WIREFRAME_FRAG_SHADER,
		binding:     model.WireframeBindingDescription(),
		attributes:  model.WireframeAttributeDescriptions(),
		topology:    vk.PrimitiveTopologyLineList,
		polygonMode: vk.PolygonModeLine,
		cullMode:    vk.CullModeNone,
		frontFace:   vk.FrontFaceClockwise,
	})
	if err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

func (p *Pipelines) create(renderPass vk.RenderPass, cfg pipelineConfig) (vk.Pipeline, error) {
	// Shader mode deletion can be done right after pipeline creation
	vertShaderMod, vertStageInfo, err := LoadVert(p.device, cfg.vert)
	if err != nil {
		return nil, err
	}
	defer DeleteShaderMod(p.device, vertShaderMod)
	fragShaderMod, fragStageInfo, err := LoadFrag(p.device, cfg.frag)
	if err != nil {
		return nil, err
	}
	defer DeleteShaderMod(p.device, fragShaderMod)
	shaderStages := []vk.PipelineShaderStageCreateInfo{vertStageInfo, fragStageInfo}

	// Viewport and scissor follow the swap chain, so resizing never requires new pipelines
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		PNext:             nil,
		Flags:             0,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		PNext:                           nil,
		Flags:                           0,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{cfg.binding},
		VertexAttributeDescriptionCount: uint32(len(cfg.attributes)),
		PVertexAttributeDescriptions:    cfg.attributes,
	}
	inputAssemblyInfo := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		PNext:                  nil,
		Flags:                  0,
		Topology:               cfg.topology,
		PrimitiveRestartEnable: vk.False,
	}
	viewportStateInfo := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		PNext:         nil,
		Flags:         0,
		ViewportCount: 1,
		PViewports:    nil,
		ScissorCount:  1,
		PScissors:     nil,
	}
	rasterizerInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		PNext:                   nil,
		Flags:                   0,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             cfg.polygonMode,
		CullMode:                vk.CullModeFlags(cfg.cullMode),
		FrontFace:               cfg.frontFace,
		DepthBiasEnable:         vk.False,
		DepthBiasConstantFactor: 0,
		DepthBiasClamp:          0,
		DepthBiasSlopeFactor:    0,
		LineWidth:               1.0,
	}
	multisamplingInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		PNext:                 nil,
		Flags:                 0,
		RasterizationSamples:  vk.SampleCount1Bit,
		SampleShadingEnable:   vk.False,
		MinSampleShading:      1.0,
		PSampleMask:           nil,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}
	colorBlendAttachmentInfo := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.False,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask:      vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	colorBlendingInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		PNext:           nil,
		Flags:           0,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentInfo},
		BlendConstants:  [4]float32{0, 0, 0, 0},
	}
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		PNext:                 nil,
		Flags:                 0,
		DepthTestEnable:       vk.True,
		DepthWriteEnable:      vk.True,
		DepthCompareOp:        vk.CompareOpLess,
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vk.False,
		Front:                 vk.StencilOpState{},
		Back:                  vk.StencilOpState{},
		MinDepthBounds:        0,
		MaxDepthBounds:        1,
	}

	pipelineInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		PNext:               nil,
		Flags:               0,
		StageCount:          uint32(len(shaderStages)),
		PStages:             shaderStages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssemblyInfo,
		PTessellationState:  nil,
		PViewportState:      &viewportStateInfo,
		PRasterizationState: &rasterizerInfo,
		PMultisampleState:   &multisamplingInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendingInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              p.Layout,
		RenderPass:          renderPass,
		Subpass:             0,
		BasePipelineHandle:  nil,
		BasePipelineIndex:   -1,
	}
	pipelines, err := common.VkCreateGraphicsPipelines(p.device, nil, 1, []vk.GraphicsPipelineCreateInfo{pipelineInfo}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s pipeline", cfg.name)
	}
	log.Printf("Successfully created %s graphics pipeline", cfg.name)
	return pipelines[0], nil
}

func (p *Pipelines) Destroy() {
	if p.Triangles != nil {
		vk.DestroyPipeline(p.device, p.Triangles, nil)
	}
	if p.Wireframe != nil {
		vk.DestroyPipeline(p.device, p.Wireframe, nil)
	}
	if p.Layout != nil {
		vk.DestroyPipelineLayout(p.device, p.Layout, nil)
	}
}
