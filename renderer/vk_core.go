package renderer

import (
	"log"
	"sync"
	"time"

	com "triangles_vk/common"
	"triangles_vk/input"
	"triangles_vk/model"

	vk "github.com/goki/vulkan"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

type Core struct {
	// OS/Window level
	Win    *com.Window
	device *com.Device

	// Target level
	swap *SwapchainLifecycle

	// Drawing infrastructure level
	primitivesPass      vk.RenderPass
	overlayPass         vk.RenderPass
	descriptorSetLayout vk.DescriptorSetLayout
	descriptorPool      vk.DescriptorPool
	descriptorSets      []vk.DescriptorSet
	pipelines           *Pipelines
	commandPool         vk.CommandPool
	upload              *com.UploadContext

	depth        *DepthBuffer
	framebuffers *Framebuffers
	overlay      *Overlay
	primitives   *Primitives

	// Frame level
	syncs     *FrameSyncSet
	scheduler *Scheduler

	// Data level
	uploads  *UploadPipeline
	geometry *Geometry
	uniforms *UniformStream

	// 3D World
	Params Parameters
	Cam    *model.Camera
	Mover  *model.Mover

	gate     *ShutdownGate
	shutdown sync.Once
}

// Externally facing functions

// NewCore opens the window and builds the whole frame engine. Any failure is returned as *DeviceCreationError and
// everything created up to that point is released again.
func NewCore(in *input.Context, params Parameters) (*Core, error) {
	c := &Core{Params: params}
	if err := c.initialize(in); err != nil {
		c.destroy()
		return nil, err
	}
	log.Printf("Render core ready with %d frames in flight", MAX_FRAMES_IN_FLIGHT)
	return c, nil
}

func (c *Core) initialize(in *input.Context) error {
	var err error
	c.Win, err = newWindow(in)
	if err != nil {
		return err
	}
	c.device, err = com.NewDevice(c.Win)
	if err != nil {
		return deviceCreation("select device", err)
	}
	c.upload, err = com.NewUploadContext(c.device)
	if err != nil {
		return deviceCreation("create upload context", err)
	}

	c.syncs, err = NewFrameSyncSet(c.device, MAX_FRAMES_IN_FLIGHT)
	if err != nil {
		return err
	}
	c.uploads = NewUploadPipeline(c.device, MAX_FRAMES_IN_FLIGHT)
	c.geometry = NewGeometry(c.uploads)
	c.uniforms, err = NewUniformStream(c.device, MAX_FRAMES_IN_FLIGHT)
	if err != nil {
		return err
	}
	c.swap, err = NewSwapchainLifecycle(c.device, swapChainFactory{dc: c.device, surf: *c.Win.Surf}, c.Win)
	if err != nil {
		return err
	}

	c.depth, err = NewDepthBuffer(c.device, c.upload)
	if err != nil {
		return deviceCreation("select depth format", err)
	}
	format := c.swap.Current().ImageFormat()
	c.primitivesPass, err = com.NewPrimitivesRenderPass(c.device, format, c.depth.Format())
	if err != nil {
		return deviceCreation("create primitives render pass", err)
	}
	c.overlayPass, err = com.NewOverlayRenderPass(c.device, format)
	if err != nil {
		return deviceCreation("create overlay render pass", err)
	}
	if err = c.createDescriptorSets(); err != nil {
		return deviceCreation("create descriptor sets", err)
	}
	c.pipelines, err = NewPipelines(c.device.D, c.primitivesPass, c.descriptorSetLayout)
	if err != nil {
		return deviceCreation("create graphics pipelines", err)
	}
	primRecorders, overlayRecorders, err := c.createCommandBuffers()
	if err != nil {
		return deviceCreation("create command buffers", err)
	}

	// Registration order is rebuild order: framebuffers need the resized depth buffer.
	c.framebuffers = NewFramebuffers(c.device, c.primitivesPass, c.depth)
	c.overlay = NewOverlay(overlayRecorders, c.overlayPass, NewFramebuffers(c.device, c.overlayPass, nil), nil)
	for _, r := range []ImageSizedResource{c.depth, c.framebuffers, c.overlay} {
		if err = c.swap.Register(r); err != nil {
			return deviceCreation("create image sized resources", err)
		}
	}

	c.DefaultCam()
	c.Mover = model.NewMover(in, c.Cam, &c.Params.Velocities)
	c.primitives = NewPrimitives(&c.Params, primRecorders, c.geometry, c.primitivesPass, c.framebuffers, c.pipelines, c.descriptorSets)
	c.scheduler = NewScheduler(c.device, c.syncs, c.swap, c.uploads, c.primitives, c.overlay, c, c.Mover)
	c.gate = NewShutdownGate(c.Win.RequestClose)
	return nil
}

// newWindow turns the window's construction panics into an error.
func newWindow(in *input.Context) (w *com.Window, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = deviceCreation("create window", errors.Errorf("%v", r))
		}
	}()
	var layers []string
	if com.ENABLE_VALIDATION {
		layers = com.VALIDATION_LAYERS
	}
	return com.NewWindow(PROGRAM_NAME, WINDOW_WIDTH, WINDOW_HEIGHT, layers, in), nil
}

// Loop this function represents the event-loop for user interaction and the per frame draw call. It returns when the
// window is closed, a stop was requested or a frame failed. Not rendering if minimized, close on Window 'close button',
// close on ESC key.
func (c *Core) Loop() error {
	t0 := time.Now()
	c.Win.Close = false
	for !c.Win.Close && !c.gate.Requested() {
		c.Win.PollEvents()
		if c.Win.Close || c.gate.Requested() {
			break
		}
		if c.Win.Minimized {
			// Sleep until new events change c.Win.Minimized
			c.Win.WaitEvents()
			continue
		}
		if err := c.scheduler.Frame(); err != nil {
			if errors.Is(err, ErrSurfaceClosed) {
				break
			}
			return err
		}
	}
	dt := time.Since(t0)
	log.Printf("Elapsed: %v, rough avg fps: %v fps", dt, float64(c.scheduler.Frames())/dt.Seconds())
	return nil
}

// Load stages vertex bytes for a category. Safe to call from any goroutine, once per category.
func (c *Core) Load(cat Category, raw []byte) error {
	return c.geometry.Load(cat, raw)
}

// SetOverlayPainter installs what the overlay pass draws, nil clears it. Call it before Loop or from the render thread.
func (c *Core) SetOverlayPainter(p OverlayPainter) {
	c.overlay.SetPainter(p)
}

// WriteUniforms fills the uniform buffer of a slot from the camera and the current parameters.
func (c *Core) WriteUniforms(slot int, extent vk.Extent2D) {
	frame := BuildUniformFrame(c.Cam, &c.Params, extent)
	c.uniforms.Write(slot, &frame)
}

// BuildUniformFrame is the per frame uniform content for a viewport of the given extent.
func BuildUniformFrame(cam *model.Camera, p *Parameters, extent vk.Extent2D) model.UniformFrame {
	cam.Fov = p.Fov
	cam.Far = p.RenderDistance
	return model.UniformFrame{
		ViewProjection: cam.ViewProjection(extent.Width, extent.Height),
		Colors: [4]mgl32.Vec4{
			model.COLOR_REGULAR:   HexToRGBA(p.RegularColor),
			model.COLOR_INTERSECT: HexToRGBA(p.IntersectColor),
			model.COLOR_WIREMESH:  HexToRGBA(p.WiremeshColor),
			model.COLOR_BBOX:      HexToRGBA(p.BboxColor),
		},
		LightColor: HexToRGBA(p.LightColor),
		LightDir:   model.LightDirection(p.LightYaw, p.LightPitch),
		Ambient:    p.Ambient,
	}
}

// StopAndWait stops Loop from any goroutine and blocks until Shutdown ran on the render thread. Meant for signal
// handlers.
func (c *Core) StopAndWait() {
	c.gate.RequestAndWait()
}

// Shutdown waits for the device to finish all submitted work and releases everything. It must run on the thread that
// runs Loop, after Loop returned. Calling it more than once is fine, only the first call does anything.
func (c *Core) Shutdown() {
	c.shutdown.Do(func() {
		c.gate.begin()
		defer c.gate.finish()
		if c.scheduler != nil {
			if err := c.scheduler.Drain(); err != nil {
				log.Printf("Failed to drain frame scheduler: %v", err)
			}
		} else if c.device != nil {
			if err := c.device.WaitIdle(); err != nil {
				log.Printf("Failed to wait for device idle: %v", err)
			}
		}
		c.destroy()
	})
}

// destroy releases everything that was created, in reverse order. Fields that are nil are skipped.
func (c *Core) destroy() {
	if c.swap != nil {
		c.swap.Destroy()
	}
	if c.geometry != nil {
		c.geometry.Destroy()
	}
	if c.uploads != nil {
		c.uploads.Destroy()
	}
	if c.uniforms != nil {
		c.uniforms.Destroy()
	}
	if c.syncs != nil {
		c.syncs.Destroy()
	}
	if c.device != nil {
		if c.commandPool != nil {
			vk.DestroyCommandPool(c.device.D, c.commandPool, nil)
		}
		if c.pipelines != nil {
			c.pipelines.Destroy()
		}
		if c.descriptorPool != nil {
			vk.DestroyDescriptorPool(c.device.D, c.descriptorPool, nil)
		}
		if c.descriptorSetLayout != nil {
			vk.DestroyDescriptorSetLayout(c.device.D, c.descriptorSetLayout, nil)
		}
		if c.overlayPass != nil {
			vk.DestroyRenderPass(c.device.D, c.overlayPass, nil)
		}
		if c.primitivesPass != nil {
			vk.DestroyRenderPass(c.device.D, c.primitivesPass, nil)
		}
		if c.upload != nil {
			c.upload.Destroy()
		}
		c.device.Destroy()
	}
	if c.Win != nil {
		c.Win.Destroy()
	}
}

// swapChainFactory creates the SDL window's swap chains on the selected device.
type swapChainFactory struct {
	dc   *com.Device
	surf vk.Surface
}

func (f swapChainFactory) NewChain(extent vk.Extent2D, old Chain) (Chain, error) {
	prev, _ := old.(*com.SwapChain)
	sc, err := com.NewSwapChain(f.dc, f.surf, extent, prev)
	if err != nil {
		return nil, err
	}
	return sc, nil
}
