package placement

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/psantana5/synthgen/pkg/config"
	"github.com/psantana5/synthgen/pkg/logging"
	"github.com/psantana5/synthgen/pkg/randomize"
	"github.com/psantana5/synthgen/pkg/render"
)

func newTestEngine(t *testing.T, backend render.Backend, seed int64) (*Engine, *ClassRegistry) {
	t.Helper()
	cfg := config.Default()
	cfg.ModelDir = "/tmp/models"
	cfg.OutputDir = "/tmp/out"
	rng := rand.New(rand.NewSource(seed))
	registry := NewClassRegistry(nil)
	sampler := randomize.New(cfg.Randomization, rng)
	log := logging.NewLogger(logging.ERROR, false)
	return NewEngine(backend, cfg, registry, rng, sampler, log), registry
}

func TestClassNameFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/data/models/harpoon/harpoon_01.obj", "harpoon"},
		{"/data/models/ulu/v2/blade.obj", "v2"},
		{"mask.obj", "."},
	}
	for _, tt := range tests {
		if got := ClassNameFor(tt.path); got != tt.want {
			t.Errorf("ClassNameFor(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestDiscoverModels(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{
		"harpoon/h1.obj",
		"harpoon/h2.obj",
		"ulu/u1.obj",
		"ulu/texture.png",
		"notes.txt",
	} {
		full := filepath.Join(dir, p)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	models, err := DiscoverModels(dir, "*.obj")
	if err != nil {
		t.Fatalf("DiscoverModels: %v", err)
	}
	if len(models) != 3 {
		t.Fatalf("found %d models, want 3: %v", len(models), models)
	}
	for _, m := range models {
		if !strings.HasSuffix(m, ".obj") {
			t.Errorf("non-obj file discovered: %s", m)
		}
	}

	empty, err := DiscoverModels(dir, "*.fbx")
	if err != nil {
		t.Fatalf("DiscoverModels: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no fbx models, got %v", empty)
	}
}

func TestPlaceCountAndRegistry(t *testing.T) {
	fake := render.NewFake()
	engine, registry := newTestEngine(t, fake, 1)

	models := []string{
		"/models/harpoon/h1.obj",
		"/models/ulu/u1.obj",
	}

	for i := 0; i < 100; i++ {
		placed, err := engine.Place(models)
		if err != nil {
			t.Fatalf("Place: %v", err)
		}
		if len(placed) < 1 || len(placed) > 3 {
			t.Fatalf("placed %d objects, want 1..3", len(placed))
		}
		for _, p := range placed {
			want := registry.Add(ClassNameFor(p.ModelPath))
			if p.ClassID != want {
				t.Errorf("object %s got class %d, want %d", p.ModelPath, p.ClassID, want)
			}
		}
	}

	if registry.Len() != 2 {
		t.Errorf("registry holds %d classes, want 2", registry.Len())
	}
	if fake.PhysicsRuns != 100 {
		t.Errorf("physics ran %d times, want once per Place", fake.PhysicsRuns)
	}
}

func TestPlaceSkipsUnloadableModels(t *testing.T) {
	fake := render.NewFake()
	fake.FailLoad = func(path string) bool {
		return strings.Contains(path, "broken")
	}
	engine, _ := newTestEngine(t, fake, 2)

	models := []string{"/models/broken/b.obj"}

	placed, err := engine.Place(models)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if len(placed) != 0 {
		t.Errorf("unloadable model was placed: %v", placed)
	}
}

func TestPlaceDeterministicWithSeed(t *testing.T) {
	models := []string{
		"/models/harpoon/h1.obj",
		"/models/ulu/u1.obj",
		"/models/mask/m1.obj",
	}

	run := func() []string {
		fake := render.NewFake()
		engine, _ := newTestEngine(t, fake, 99)
		var paths []string
		for i := 0; i < 10; i++ {
			placed, err := engine.Place(models)
			if err != nil {
				t.Fatalf("Place: %v", err)
			}
			for _, p := range placed {
				paths = append(paths, p.ModelPath)
			}
		}
		return paths
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("runs placed different counts: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("model choice %d diverged: %s vs %s", i, a[i], b[i])
		}
	}
}
