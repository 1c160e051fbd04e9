package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Range is a closed numeric interval [min, max] used by randomization settings.
// Serialized as a two-element YAML list.
type Range [2]float64

// Min returns the lower bound
func (r Range) Min() float64 { return r[0] }

// Max returns the upper bound
func (r Range) Max() float64 { return r[1] }

func (r Range) validate(name string) error {
	if r[0] > r[1] {
		return fmt.Errorf("%s: min %v > max %v", name, r[0], r[1])
	}
	return nil
}

// PhysicsConfig holds rigid body simulation settings
type PhysicsConfig struct {
	Gravity         [3]float64 `yaml:"gravity"`
	SimulationSteps int        `yaml:"simulation_steps"`
	Substeps        int        `yaml:"substeps"`
	Friction        float64    `yaml:"friction"`
	Restitution     float64    `yaml:"restitution"`
}

// RenderConfig holds render backend settings
type RenderConfig struct {
	Engine     string `yaml:"engine"`
	Samples    int    `yaml:"samples"`
	UseGPU     bool   `yaml:"use_gpu"`
	Resolution [2]int `yaml:"resolution"`
	FileFormat string `yaml:"file_format"`
	Quality    int    `yaml:"quality"`
}

// Width returns the horizontal resolution in pixels
func (r RenderConfig) Width() int { return r.Resolution[0] }

// Height returns the vertical resolution in pixels
func (r RenderConfig) Height() int { return r.Resolution[1] }

// RandomizationConfig holds the domain randomization ranges
type RandomizationConfig struct {
	LightingIntensityRange    Range `yaml:"lighting_intensity_range"`
	LightingColorTempRange    Range `yaml:"lighting_color_temp_range"`
	CameraDistanceRange       Range `yaml:"camera_distance_range"`
	CameraAngleRange          Range `yaml:"camera_angle_range"` // degrees
	ObjectScaleRange          Range `yaml:"object_scale_range"`
	BackgroundBrightnessRange Range `yaml:"background_brightness_range"`
}

// AnnotationConfig holds annotation format and filtering settings
type AnnotationConfig struct {
	Format        string   `yaml:"format"`
	MinVisibility float64  `yaml:"min_visibility"`
	MinBBoxArea   int      `yaml:"min_bbox_area"`
	ClassNames    []string `yaml:"class_names"`
}

// GenerationConfig is the full configuration for one generation job
type GenerationConfig struct {
	ModelDir  string `yaml:"model_dir"`
	OutputDir string `yaml:"output_dir"`

	NumImages          int        `yaml:"num_images"`
	TrainTestValSplit  [3]float64 `yaml:"train_test_val_split"`
	MaxObjectsPerScene int        `yaml:"max_objects_per_scene"`
	RandomSeed         *int64     `yaml:"random_seed"`
	ModelPattern       string     `yaml:"model_pattern"`

	// When true, image files of attempts discarded after rendering are
	// removed instead of being left next to the committed images.
	CleanupDiscardedRenders bool `yaml:"cleanup_discarded_renders"`

	Physics       PhysicsConfig       `yaml:"physics"`
	Render        RenderConfig        `yaml:"render"`
	Randomization RandomizationConfig `yaml:"randomization"`
	Annotation    AnnotationConfig    `yaml:"annotation"`
}

// Default returns a GenerationConfig with the default settings
func Default() *GenerationConfig {
	return &GenerationConfig{
		NumImages:          1000,
		TrainTestValSplit:  [3]float64{0.8, 0.1, 0.1},
		MaxObjectsPerScene: 3,
		ModelPattern:       "*.obj",
		Physics: PhysicsConfig{
			Gravity:         [3]float64{0, 0, -9.81},
			SimulationSteps: 120,
			Substeps:        10,
			Friction:        0.5,
			Restitution:     0.3,
		},
		Render: RenderConfig{
			Engine:     "software",
			Samples:    128,
			UseGPU:     true,
			Resolution: [2]int{1920, 1080},
			FileFormat: "JPEG",
			Quality:    95,
		},
		Randomization: RandomizationConfig{
			LightingIntensityRange:    Range{500, 2000},
			LightingColorTempRange:    Range{3000, 6500},
			CameraDistanceRange:       Range{0.5, 2.0},
			CameraAngleRange:          Range{-30, 30},
			ObjectScaleRange:          Range{0.8, 1.2},
			BackgroundBrightnessRange: Range{0.7, 1.0},
		},
		Annotation: AnnotationConfig{
			Format:        "yolo",
			MinVisibility: 0.3,
			MinBBoxArea:   100,
		},
	}
}

// Validate checks the configuration and returns a descriptive error on the
// first problem found. A config that passes Validate never fails later for
// range or enum reasons.
func (c *GenerationConfig) Validate() error {
	if c.ModelDir == "" {
		return fmt.Errorf("model_dir is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.NumImages < 0 {
		return fmt.Errorf("num_images must be >= 0, got %d", c.NumImages)
	}
	if c.MaxObjectsPerScene < 1 {
		return fmt.Errorf("max_objects_per_scene must be >= 1, got %d", c.MaxObjectsPerScene)
	}
	if c.ModelPattern == "" {
		return fmt.Errorf("model_pattern is required")
	}

	sum := c.TrainTestValSplit[0] + c.TrainTestValSplit[1] + c.TrainTestValSplit[2]
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("train_test_val_split must sum to 1.0, got %v", sum)
	}
	for i, v := range c.TrainTestValSplit {
		if v < 0 || v > 1 {
			return fmt.Errorf("train_test_val_split[%d] out of [0,1]: %v", i, v)
		}
	}

	if c.Physics.SimulationSteps < 1 {
		return fmt.Errorf("physics.simulation_steps must be >= 1")
	}
	if c.Physics.Substeps < 1 {
		return fmt.Errorf("physics.substeps must be >= 1")
	}
	if c.Physics.Friction < 0 || c.Physics.Friction > 1 {
		return fmt.Errorf("physics.friction must be in [0,1], got %v", c.Physics.Friction)
	}
	if c.Physics.Restitution < 0 || c.Physics.Restitution > 1 {
		return fmt.Errorf("physics.restitution must be in [0,1], got %v", c.Physics.Restitution)
	}

	switch c.Render.Engine {
	case "software":
	default:
		return fmt.Errorf("render.engine must be 'software', got %q", c.Render.Engine)
	}
	switch c.Render.FileFormat {
	case "JPEG", "PNG":
	default:
		return fmt.Errorf("render.file_format must be 'JPEG' or 'PNG', got %q", c.Render.FileFormat)
	}
	if c.Render.Samples < 1 {
		return fmt.Errorf("render.samples must be >= 1")
	}
	if c.Render.Quality < 0 || c.Render.Quality > 100 {
		return fmt.Errorf("render.quality must be in [0,100], got %d", c.Render.Quality)
	}
	if c.Render.Width() < 1 || c.Render.Height() < 1 {
		return fmt.Errorf("render.resolution must be positive, got %v", c.Render.Resolution)
	}

	ranges := []struct {
		name string
		r    Range
	}{
		{"randomization.lighting_intensity_range", c.Randomization.LightingIntensityRange},
		{"randomization.lighting_color_temp_range", c.Randomization.LightingColorTempRange},
		{"randomization.camera_distance_range", c.Randomization.CameraDistanceRange},
		{"randomization.camera_angle_range", c.Randomization.CameraAngleRange},
		{"randomization.object_scale_range", c.Randomization.ObjectScaleRange},
		{"randomization.background_brightness_range", c.Randomization.BackgroundBrightnessRange},
	}
	for _, rr := range ranges {
		if err := rr.r.validate(rr.name); err != nil {
			return err
		}
	}

	if c.Annotation.Format != "yolo" {
		return fmt.Errorf("annotation.format must be 'yolo', got %q", c.Annotation.Format)
	}
	if c.Annotation.MinVisibility < 0 || c.Annotation.MinVisibility > 1 {
		return fmt.Errorf("annotation.min_visibility must be in [0,1], got %v", c.Annotation.MinVisibility)
	}
	if c.Annotation.MinBBoxArea < 1 {
		return fmt.Errorf("annotation.min_bbox_area must be >= 1, got %d", c.Annotation.MinBBoxArea)
	}

	return nil
}

// Load reads a YAML configuration file. Unknown fields are rejected so a
// typo in a config file fails before any generation work starts.
func Load(path string) (*GenerationConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories as needed
func Save(cfg *GenerationConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// Clone returns a deep copy of the configuration. Batch jobs mutate their
// copy's directories and class list without touching the base config.
func (c *GenerationConfig) Clone() *GenerationConfig {
	out := *c
	if c.RandomSeed != nil {
		seed := *c.RandomSeed
		out.RandomSeed = &seed
	}
	out.Annotation.ClassNames = append([]string(nil), c.Annotation.ClassNames...)
	return &out
}
