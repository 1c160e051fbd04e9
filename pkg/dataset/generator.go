// Package dataset drives the generation pipeline: per-image scene setup,
// placement, randomization, rendering, bbox projection and annotation
// commit, organized into sequential train/test/val splits, plus a batch
// runner that processes independent model directories in parallel.
package dataset

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/psantana5/synthgen/pkg/annotation"
	"github.com/psantana5/synthgen/pkg/config"
	"github.com/psantana5/synthgen/pkg/logging"
	"github.com/psantana5/synthgen/pkg/metrics"
	"github.com/psantana5/synthgen/pkg/placement"
	"github.com/psantana5/synthgen/pkg/randomize"
	"github.com/psantana5/synthgen/pkg/render"
)

// focusPoint is where the camera aims and objects accumulate
var focusPoint = render.Vec3{X: 0, Y: 0, Z: 0.5}

// SplitResult is the outcome of one split's generation loop
type SplitResult struct {
	Name      string
	Requested int
	Committed int
}

// Summary is the outcome of a full generation run
type Summary struct {
	Splits  []SplitResult
	Classes []string
}

// Committed returns the total committed image count
func (s *Summary) Committed() int {
	n := 0
	for _, sp := range s.Splits {
		n += sp.Committed
	}
	return n
}

// Generator owns one GenerationJob for its lifetime
type Generator struct {
	cfg      *config.GenerationConfig
	backend  render.Backend
	rng      *rand.Rand
	sampler  *randomize.Randomizer
	registry *placement.ClassRegistry
	placer   *placement.Engine
	models   []string
	log      *logging.Logger
	metrics  *metrics.Generation
}

// New validates the configuration, discovers models and prepares the output
// tree. A model directory with no matching assets fails here, before any
// generation work. met may be nil.
func New(cfg *config.GenerationConfig, backend render.Backend, log *logging.Logger, met *metrics.Generation) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var seed int64
	if cfg.RandomSeed != nil {
		seed = *cfg.RandomSeed
		log.Info(fmt.Sprintf("Random seed set to %d", seed))
	} else {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	models, err := placement.DiscoverModels(cfg.ModelDir, cfg.ModelPattern)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no models matching %q found in %s", cfg.ModelPattern, cfg.ModelDir)
	}
	log.Info(fmt.Sprintf("Found %d 3D models", len(models)))

	for _, split := range annotation.Splits {
		for _, sub := range []string{"images", "labels"} {
			if err := os.MkdirAll(filepath.Join(cfg.OutputDir, split, sub), 0755); err != nil {
				return nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}
	}

	registry := placement.NewClassRegistry(cfg.Annotation.ClassNames)
	sampler := randomize.New(cfg.Randomization, rng)

	return &Generator{
		cfg:      cfg,
		backend:  backend,
		rng:      rng,
		sampler:  sampler,
		registry: registry,
		placer:   placement.NewEngine(backend, cfg, registry, rng, sampler, log),
		models:   models,
		log:      log,
		metrics:  met,
	}, nil
}

// SplitCounts computes per-split image counts from the total and ratios.
// Rounding shortfall is absorbed by val so the three always sum to total.
func SplitCounts(total int, ratios [3]float64) (train, test, val int) {
	train = int(float64(total) * ratios[0])
	test = int(float64(total) * ratios[1])
	val = total - train - test
	return train, test, val
}

// generateOne runs the per-image pipeline. Every return false is a discard;
// the caller moves on to the next index without retrying.
func (g *Generator) generateOne(split, imagePath, labelPath string) bool {
	g.metrics.ImageAttempted()

	// scene reset: ground plane, lights, background
	if err := g.backend.ResetScene(); err != nil {
		g.log.Error("Scene reset failed", map[string]interface{}{"error": err.Error()})
		g.metrics.ImageDiscarded(metrics.ReasonRenderFailed)
		return false
	}
	plane, err := g.backend.AddPlane(10, render.Vec3{})
	if err == nil {
		err = g.backend.ApplyRigidBody(plane, render.BodyPassive, 1.0,
			float32(g.cfg.Physics.Friction), float32(g.cfg.Physics.Restitution))
	}
	if err != nil {
		g.log.Error("Scene setup failed", map[string]interface{}{"error": err.Error()})
		g.metrics.ImageDiscarded(metrics.ReasonRenderFailed)
		return false
	}
	for _, l := range g.sampler.Lights() {
		lh, err := g.backend.AddLight(l.Kind, l.Energy, l.Location)
		if err != nil {
			continue
		}
		g.backend.SetLightColor(lh, l.Color)
	}
	// reset leaves a white background; replace it with the sampled one
	g.backend.SetBackground(g.sampler.Background())

	// object placement with physics settle
	placed, err := g.placer.Place(g.models)
	if err != nil {
		g.log.Error("Placement failed", map[string]interface{}{"error": err.Error()})
		g.metrics.ImageDiscarded(metrics.ReasonNoObjects)
		return false
	}
	if len(placed) == 0 {
		g.log.Warn("No objects placed, skipping image", map[string]interface{}{"split": split})
		g.metrics.ImageDiscarded(metrics.ReasonNoObjects)
		return false
	}
	g.metrics.ObjectsPlaced(len(placed))

	// camera
	cam := g.sampler.Camera(focusPoint)
	if err := g.backend.SetCameraPose(cam.Location, cam.LookAt, cam.FocalLength); err != nil {
		g.log.Error("Camera setup failed", map[string]interface{}{"error": err.Error()})
		g.metrics.ImageDiscarded(metrics.ReasonRenderFailed)
		return false
	}

	// render
	start := time.Now()
	err = g.backend.Render(imagePath)
	g.metrics.ObserveRender(time.Since(start))
	if err != nil {
		g.log.Error("Rendering failed", map[string]interface{}{
			"image": imagePath,
			"error": err.Error(),
		})
		g.metrics.ImageDiscarded(metrics.ReasonRenderFailed)
		return false
	}

	// project and filter bounding boxes
	annotations := make([]annotation.Annotation, 0, len(placed))
	for _, p := range placed {
		box, ok := annotation.ProjectBBox(g.backend, p.Handle, g.cfg.Render.Width(), g.cfg.Render.Height())
		if !ok {
			continue
		}
		if !annotation.ValidBox(box, g.cfg.Annotation.MinBBoxArea) {
			continue
		}
		annotations = append(annotations, annotation.Annotation{ClassID: p.ClassID, Box: box})
	}
	if len(annotations) == 0 {
		g.log.Warn("No valid annotations, skipping image", map[string]interface{}{"split": split})
		g.metrics.ImageDiscarded(metrics.ReasonNoAnnotations)
		if g.cfg.CleanupDiscardedRenders {
			if err := os.Remove(imagePath); err != nil {
				g.log.Warn("Failed to remove discarded render", map[string]interface{}{
					"image": imagePath,
					"error": err.Error(),
				})
			}
		}
		return false
	}

	// commit
	if err := annotation.WriteYOLO(annotations, labelPath); err != nil {
		g.log.Error("Failed to save annotations", map[string]interface{}{
			"label": labelPath,
			"error": err.Error(),
		})
		g.metrics.ImageDiscarded(metrics.ReasonWriteFailed)
		return false
	}
	g.metrics.AnnotationsWritten(len(annotations))
	return true
}

// GenerateSplit generates numImages attempts for a split and returns the
// committed count. Failed attempts are consumed, not retried.
func (g *Generator) GenerateSplit(split string, numImages int) int {
	g.log.Info(fmt.Sprintf("Generating %d images for %s split", numImages, split))

	imagesDir := filepath.Join(g.cfg.OutputDir, split, "images")
	labelsDir := filepath.Join(g.cfg.OutputDir, split, "labels")

	ext := ".jpg"
	if g.cfg.Render.FileFormat == "PNG" {
		ext = ".png"
	}

	success := 0
	for i := 0; i < numImages; i++ {
		name := fmt.Sprintf("%s_%06d", split, i)
		imagePath := filepath.Join(imagesDir, name+ext)
		labelPath := filepath.Join(labelsDir, name+".txt")
		if g.generateOne(split, imagePath, labelPath) {
			success++
			g.metrics.ImageCommitted(split)
		}
	}

	g.log.Info(fmt.Sprintf("Generated %d/%d images for %s split", success, numImages, split))
	return success
}

// Generate produces the complete dataset: the three splits in order, then
// config.yaml and classes.txt at the dataset root.
func (g *Generator) Generate() (*Summary, error) {
	g.log.Info("Starting synthetic dataset generation")

	train, test, val := SplitCounts(g.cfg.NumImages, g.cfg.TrainTestValSplit)
	g.log.Info(fmt.Sprintf("Dataset split: train=%d, test=%d, val=%d", train, test, val))

	summary := &Summary{}
	for _, sp := range []struct {
		name string
		n    int
	}{{"train", train}, {"test", test}, {"val", val}} {
		committed := g.GenerateSplit(sp.name, sp.n)
		summary.Splits = append(summary.Splits, SplitResult{
			Name:      sp.name,
			Requested: sp.n,
			Committed: committed,
		})
	}

	// class list grew during generation; persist the final state
	g.cfg.Annotation.ClassNames = g.registry.Names()
	summary.Classes = g.registry.Names()

	if err := config.Save(g.cfg, filepath.Join(g.cfg.OutputDir, "config.yaml")); err != nil {
		return summary, err
	}
	if err := writeClasses(summary.Classes, filepath.Join(g.cfg.OutputDir, "classes.txt")); err != nil {
		return summary, err
	}

	g.log.Info(fmt.Sprintf("Dataset generation complete: %s", g.cfg.OutputDir))
	return summary, nil
}

func writeClasses(names []string, path string) error {
	var sb strings.Builder
	for _, n := range names {
		sb.WriteString(n)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write class list %s: %w", path, err)
	}
	return nil
}
