// Package placement selects models, drops them into the scene and settles
// them with the backend's rigid body simulation. Class IDs derive from each
// model's parent directory name through a shared ClassRegistry.
package placement

import (
	"fmt"
	"io/fs"
	"math/rand"
	"path/filepath"

	"github.com/psantana5/synthgen/pkg/config"
	"github.com/psantana5/synthgen/pkg/logging"
	"github.com/psantana5/synthgen/pkg/randomize"
	"github.com/psantana5/synthgen/pkg/render"
)

// PlacedObject is one successfully placed scene object
type PlacedObject struct {
	Handle    render.Handle
	ClassID   int
	ModelPath string
}

// Engine places objects for one image
type Engine struct {
	backend  render.Backend
	physics  config.PhysicsConfig
	maxCount int
	registry *ClassRegistry
	rng      *rand.Rand
	sampler  *randomize.Randomizer
	log      *logging.Logger
}

// NewEngine creates a placement engine bound to a backend and class registry
func NewEngine(
	backend render.Backend,
	cfg *config.GenerationConfig,
	registry *ClassRegistry,
	rng *rand.Rand,
	sampler *randomize.Randomizer,
	log *logging.Logger,
) *Engine {
	return &Engine{
		backend:  backend,
		physics:  cfg.Physics,
		maxCount: cfg.MaxObjectsPerScene,
		registry: registry,
		rng:      rng,
		sampler:  sampler,
		log:      log,
	}
}

// DiscoverModels walks dir recursively and returns paths whose base name
// matches pattern, in lexical order.
func DiscoverModels(dir, pattern string) ([]string, error) {
	var models []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, err := filepath.Match(pattern, d.Name())
		if err != nil {
			return fmt.Errorf("invalid model pattern %q: %w", pattern, err)
		}
		if ok {
			models = append(models, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan model directory %s: %w", dir, err)
	}
	return models, nil
}

// ClassNameFor returns the class name a model path maps to: the name of its
// containing directory.
func ClassNameFor(modelPath string) string {
	return filepath.Base(filepath.Dir(modelPath))
}

// Place drops between 1 and max_objects_per_scene randomly chosen models
// into the scene and runs the physics settle. Models that fail to load are
// skipped and do not count toward the placed total. An empty result is not
// an error; the caller discards the image.
func (e *Engine) Place(models []string) ([]PlacedObject, error) {
	count := 1 + e.rng.Intn(e.maxCount)
	placed := make([]PlacedObject, 0, count)

	for i := 0; i < count; i++ {
		modelPath := models[e.rng.Intn(len(models))]
		classID := e.registry.Add(ClassNameFor(modelPath))

		scale := e.sampler.ObjectScale()
		x := e.uniform(-2, 2)
		y := e.uniform(-2, 2)
		height := e.uniform(0.5, 2)

		handle, err := e.backend.LoadModel(modelPath, scale, render.Vec3{X: x, Y: y, Z: height})
		if err != nil {
			e.log.Debug("Skipping unloadable model", map[string]interface{}{
				"model": modelPath,
				"error": err.Error(),
			})
			continue
		}

		if err := e.backend.ApplyRigidBody(
			handle, render.BodyActive, 1.0,
			float32(e.physics.Friction), float32(e.physics.Restitution),
		); err != nil {
			return nil, fmt.Errorf("failed to apply rigid body: %w", err)
		}

		mat := e.sampler.Material()
		if err := e.backend.SetObjectMaterial(handle, mat.Color, mat.Roughness); err != nil {
			return nil, fmt.Errorf("failed to set material: %w", err)
		}

		placed = append(placed, PlacedObject{
			Handle:    handle,
			ClassID:   classID,
			ModelPath: modelPath,
		})
	}

	if err := e.backend.StepPhysics(1, 1+e.physics.SimulationSteps); err != nil {
		return nil, fmt.Errorf("physics settle failed: %w", err)
	}

	return placed, nil
}

func (e *Engine) uniform(min, max float64) float32 {
	return float32(min + e.rng.Float64()*(max-min))
}
