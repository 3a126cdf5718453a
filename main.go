package main

import (
	"flag"
	"log"
	"os"
	"runtime"

	"triangles_vk/input"
	"triangles_vk/model"
	"triangles_vk/renderer"
	"triangles_vk/stl"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/xlab/closer"
	"golang.org/x/sync/errgroup"
)

const BROAD_PHASE_EXTENT, BROAD_PHASE_CELLS = 1000, 20

func init() {
	// SDL and the surface must stay on the main thread
	runtime.LockOSThread()
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(os.Stdout)
	log.Printf("Starting %s", renderer.PROGRAM_NAME)
	log.Printf("Using GoLang: [%s]", runtime.Version())
}

func main() {
	stlPath := flag.String("stl", "", "binary STL file to show, demo cubes when empty")
	bbox := flag.Bool("bbox", false, "draw the bounding box of the loaded triangles")
	broad := flag.Bool("broad", false, "draw the broad phase grid")
	flag.Parse()

	params := renderer.DefaultParameters()
	params.DrawBoundingBoxes = *bbox
	params.DrawBroadPhase = *broad

	core, err := renderer.NewCore(input.NewContext(), params)
	if err != nil {
		log.Fatalf("Failed to start renderer: %v", err)
	}
	// A signal only stops the loop, SDL and Vulkan are torn down on this thread below.
	closer.Bind(core.StopAndWait)
	defer closer.Close()

	// Loading runs next to the render loop, geometry shows up once it is promoted.
	var loaders errgroup.Group
	loaders.Go(func() error {
		tris, err := loadTriangles(*stlPath)
		if err != nil {
			return err
		}
		if err := core.LoadTriangles(tris); err != nil {
			return err
		}
		return core.LoadWireframe(renderer.BoundingBox, stl.BoundingBoxWireframe(tris, model.COLOR_BBOX))
	})
	loaders.Go(func() error {
		grid := model.NewGridLines(BROAD_PHASE_EXTENT, BROAD_PHASE_CELLS, model.COLOR_WIREMESH)
		return core.LoadWireframe(renderer.BroadPhase, grid)
	})

	if err := core.Loop(); err != nil {
		log.Printf("Render loop failed: %v", err)
	}
	if err := loaders.Wait(); err != nil {
		log.Printf("Failed to load geometry: %v", err)
	}
	core.Shutdown()
}

func loadTriangles(path string) ([]model.TriangleVertex, error) {
	if path == "" {
		return demoTriangles(), nil
	}
	tris, err := stl.ReadStlFile(path, model.COLOR_REGULAR)
	if err != nil {
		return nil, errors.Wrapf(err, "load '%s'", path)
	}
	log.Printf("Loaded %d triangles from %s", len(tris)/3, path)
	return tris, nil
}

// demoTriangles is a row of cubes, the middle one marked as intersecting.
func demoTriangles() []model.TriangleVertex {
	var tris []model.TriangleVertex
	for i := -2; i <= 2; i++ {
		color := uint32(model.COLOR_REGULAR)
		if i == 0 {
			color = model.COLOR_INTERSECT
		}
		tris = append(tris, model.NewCubeTriangles(mgl32.Vec3{float32(i) * 150, 0, 0}, 100, color)...)
	}
	return tris
}
