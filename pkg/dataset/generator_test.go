package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/psantana5/synthgen/pkg/config"
	"github.com/psantana5/synthgen/pkg/logging"
	"github.com/psantana5/synthgen/pkg/render"
)

func writeModelFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, p := range []string{"harpoon/h1.obj", "ulu/u1.obj"} {
		full := filepath.Join(dir, p)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("v 0 0 0\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func testConfig(t *testing.T, numImages int) *config.GenerationConfig {
	t.Helper()
	cfg := config.Default()
	cfg.ModelDir = writeModelFixtures(t)
	cfg.OutputDir = t.TempDir()
	cfg.NumImages = numImages
	seed := int64(1)
	cfg.RandomSeed = &seed
	return cfg
}

func newTestGenerator(t *testing.T, cfg *config.GenerationConfig, fake *render.Fake) *Generator {
	t.Helper()
	log := logging.NewLogger(logging.ERROR, false)
	g, err := New(cfg, fake, log, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestSplitCounts(t *testing.T) {
	tests := []struct {
		name   string
		total  int
		ratios [3]float64
		train  int
		test   int
		val    int
	}{
		{"even hundred", 100, [3]float64{0.8, 0.1, 0.1}, 80, 10, 10},
		{"ten", 10, [3]float64{0.8, 0.1, 0.1}, 8, 1, 1},
		{"remainder to val", 7, [3]float64{0.8, 0.1, 0.1}, 5, 0, 2},
		{"zero", 0, [3]float64{0.8, 0.1, 0.1}, 0, 0, 0},
		{"single image", 1, [3]float64{0.8, 0.1, 0.1}, 0, 0, 1},
		{"all train", 10, [3]float64{1, 0, 0}, 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			train, test, val := SplitCounts(tt.total, tt.ratios)
			if train != tt.train || test != tt.test || val != tt.val {
				t.Errorf("SplitCounts(%d, %v) = (%d,%d,%d), want (%d,%d,%d)",
					tt.total, tt.ratios, train, test, val, tt.train, tt.test, tt.val)
			}
			if train+test+val != tt.total {
				t.Errorf("split counts sum to %d, want %d", train+test+val, tt.total)
			}
		})
	}
}

func TestGenerateCommitsDataset(t *testing.T) {
	cfg := testConfig(t, 10)
	fake := render.NewFake()
	g := newTestGenerator(t, cfg, fake)

	summary, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if summary.Committed() != 10 {
		t.Fatalf("committed %d images, want 10", summary.Committed())
	}

	wantPerSplit := map[string]int{"train": 8, "test": 1, "val": 1}
	for _, sp := range summary.Splits {
		if sp.Committed != wantPerSplit[sp.Name] {
			t.Errorf("split %s committed %d, want %d", sp.Name, sp.Committed, wantPerSplit[sp.Name])
		}
	}

	// every committed image has its label, with the contracted names
	img := filepath.Join(cfg.OutputDir, "train", "images", "train_000007.jpg")
	if _, err := os.Stat(img); err != nil {
		t.Errorf("missing committed image: %v", err)
	}
	label := filepath.Join(cfg.OutputDir, "train", "labels", "train_000007.txt")
	if _, err := os.Stat(label); err != nil {
		t.Errorf("missing committed label: %v", err)
	}

	for _, meta := range []string{"config.yaml", "classes.txt"} {
		if _, err := os.Stat(filepath.Join(cfg.OutputDir, meta)); err != nil {
			t.Errorf("missing %s: %v", meta, err)
		}
	}

	if len(summary.Classes) == 0 {
		t.Error("no classes registered after a committed run")
	}

	// the saved config must carry the discovered class list
	saved, err := config.Load(filepath.Join(cfg.OutputDir, "config.yaml"))
	if err != nil {
		t.Fatalf("loading saved config: %v", err)
	}
	if len(saved.Annotation.ClassNames) != len(summary.Classes) {
		t.Errorf("saved class list %v does not match summary %v",
			saved.Annotation.ClassNames, summary.Classes)
	}
}

func TestGenerateRenderFailureIsolated(t *testing.T) {
	cfg := testConfig(t, 5)
	fake := render.NewFake()
	fake.RenderErr = errors.New("render backend crashed")
	g := newTestGenerator(t, cfg, fake)

	summary, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate should not fail on per-image render errors: %v", err)
	}
	if summary.Committed() != 0 {
		t.Errorf("committed %d images with a broken renderer", summary.Committed())
	}

	// failed attempts consume their slot: no labels anywhere
	labels, _ := filepath.Glob(filepath.Join(cfg.OutputDir, "*", "labels", "*.txt"))
	if len(labels) != 0 {
		t.Errorf("found %d label files after total render failure", len(labels))
	}
}

func TestGenerateDiscardKeepsOrphanImage(t *testing.T) {
	cfg := testConfig(t, 3)
	fake := render.NewFake()
	fake.ProjectFn = func(p render.Vec3) (float32, float32, float32) {
		return 0.5, 0.5, -1 // nothing is ever visible
	}
	g := newTestGenerator(t, cfg, fake)

	summary, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if summary.Committed() != 0 {
		t.Fatalf("committed %d invisible images", summary.Committed())
	}

	// rendered files of discarded attempts stay on disk by default
	images, _ := filepath.Glob(filepath.Join(cfg.OutputDir, "*", "images", "*.jpg"))
	if len(images) != 3 {
		t.Errorf("found %d orphan images, want 3", len(images))
	}
}

func TestGenerateCleanupDiscardedRenders(t *testing.T) {
	cfg := testConfig(t, 3)
	cfg.CleanupDiscardedRenders = true
	fake := render.NewFake()
	fake.ProjectFn = func(p render.Vec3) (float32, float32, float32) {
		return 0.5, 0.5, -1
	}
	g := newTestGenerator(t, cfg, fake)

	if _, err := g.Generate(); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	images, _ := filepath.Glob(filepath.Join(cfg.OutputDir, "*", "images", "*.jpg"))
	if len(images) != 0 {
		t.Errorf("cleanup left %d discarded images behind", len(images))
	}
}

func TestGenerateDeterministicClasses(t *testing.T) {
	run := func(outputDir string) []string {
		cfg := config.Default()
		cfg.ModelDir = writeModelFixtures(t)
		cfg.OutputDir = outputDir
		cfg.NumImages = 6
		seed := int64(123)
		cfg.RandomSeed = &seed

		g := newTestGenerator(t, cfg, render.NewFake())
		summary, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		return summary.Classes
	}

	a := run(t.TempDir())
	b := run(t.TempDir())
	if len(a) != len(b) {
		t.Fatalf("class counts diverged: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("class order diverged: %v vs %v", a, b)
		}
	}
}

func TestNewFailsWithoutModels(t *testing.T) {
	cfg := config.Default()
	cfg.ModelDir = t.TempDir() // empty
	cfg.OutputDir = t.TempDir()

	log := logging.NewLogger(logging.ERROR, false)
	if _, err := New(cfg, render.NewFake(), log, nil); err == nil {
		t.Error("expected error for model directory with no matching files")
	}
}

func TestNewFailsOnInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.ModelDir = t.TempDir()
	cfg.OutputDir = t.TempDir()
	cfg.MaxObjectsPerScene = 0

	log := logging.NewLogger(logging.ERROR, false)
	if _, err := New(cfg, render.NewFake(), log, nil); err == nil {
		t.Error("expected validation error")
	}
}

func TestGenerateZeroImages(t *testing.T) {
	cfg := testConfig(t, 0)
	g := newTestGenerator(t, cfg, render.NewFake())

	summary, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if summary.Committed() != 0 {
		t.Errorf("zero-image run committed %d", summary.Committed())
	}
	// the metadata is still written
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "classes.txt")); err != nil {
		t.Errorf("missing classes.txt: %v", err)
	}
}
