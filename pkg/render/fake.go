package render

import (
	"fmt"
	"os"
	"path/filepath"
)

// Fake is an in-memory Backend for pipeline tests. Model loading, rendering
// and projection can all be scripted per test. Render writes a small stub
// file so directory layout checks work against a real filesystem.
type Fake struct {
	// FailLoad returns true for model paths that should fail to load
	FailLoad func(path string) bool
	// RenderErr, when set, is returned from every Render call
	RenderErr error
	// Vertices returns the model-space vertex set for a path. When nil, a
	// unit cube is used.
	Vertices func(path string) []Vec3
	// ProjectFn overrides projection. When nil, a fixed frontal projection
	// places everything near the frame center with positive depth.
	ProjectFn func(p Vec3) (float32, float32, float32)

	Resets      int
	Renders     []string
	PhysicsRuns int

	objects map[Handle]fakeObject
	lights  int
	next    Handle
}

type fakeObject struct {
	path     string
	scale    float32
	location Vec3
}

// NewFake creates a fake backend
func NewFake() *Fake {
	f := &Fake{}
	f.ResetScene()
	f.Resets = 0
	return f
}

// ResetScene clears the fake scene
func (f *Fake) ResetScene() error {
	f.objects = make(map[Handle]fakeObject)
	f.lights = 0
	f.Resets++
	return nil
}

// AddPlane records a ground plane
func (f *Fake) AddPlane(size float32, location Vec3) (Handle, error) {
	f.next++
	f.objects[f.next] = fakeObject{path: "<plane>", scale: 1, location: location}
	return f.next, nil
}

// AddLight records a light
func (f *Fake) AddLight(kind LightKind, energy float32, location Vec3) (Handle, error) {
	f.lights++
	return Handle(-f.lights), nil
}

// SetLightColor is a no-op
func (f *Fake) SetLightColor(h Handle, rgb [3]float32) error { return nil }

// SetBackground is a no-op
func (f *Fake) SetBackground(color RGBA) error { return nil }

// LoadModel records an object, or fails when scripted to
func (f *Fake) LoadModel(path string, scale float32, location Vec3) (Handle, error) {
	if f.FailLoad != nil && f.FailLoad(path) {
		return 0, fmt.Errorf("failed to load model %s", path)
	}
	f.next++
	f.objects[f.next] = fakeObject{path: path, scale: scale, location: location}
	return f.next, nil
}

// SetObjectMaterial is a no-op
func (f *Fake) SetObjectMaterial(h Handle, color RGBA, roughness float32) error { return nil }

// ApplyRigidBody is a no-op
func (f *Fake) ApplyRigidBody(h Handle, kind BodyKind, mass, friction, restitution float32) error {
	return nil
}

// StepPhysics counts simulation invocations
func (f *Fake) StepPhysics(startFrame, endFrame int) error {
	f.PhysicsRuns++
	return nil
}

// SetCameraPose is a no-op
func (f *Fake) SetCameraPose(location, lookAt Vec3, focalLength float32) error { return nil }

// ObjectVertices returns the scripted vertex set translated to the object's
// location
func (f *Fake) ObjectVertices(h Handle) ([]Vec3, error) {
	o, ok := f.objects[h]
	if !ok {
		return nil, fmt.Errorf("invalid object handle %d", h)
	}
	base := unitCube
	if f.Vertices != nil {
		base = f.Vertices(o.path)
	}
	out := make([]Vec3, len(base))
	for i, v := range base {
		out[i] = o.location.Add(v.Scale(o.scale))
	}
	return out, nil
}

var unitCube = []Vec3{
	{-0.5, -0.5, 0}, {0.5, -0.5, 0}, {0.5, 0.5, 0}, {-0.5, 0.5, 0},
	{-0.5, -0.5, 1}, {0.5, -0.5, 1}, {0.5, 0.5, 1}, {-0.5, 0.5, 1},
}

// ProjectWorldToCamera maps world x/y linearly into the frame unless
// overridden
func (f *Fake) ProjectWorldToCamera(p Vec3) (float32, float32, float32) {
	if f.ProjectFn != nil {
		return f.ProjectFn(p)
	}
	return 0.5 + p.X/10, 0.5 + p.Y/10, 5 + p.Z
}

// Render records the output path and writes a stub file
func (f *Fake) Render(outputPath string) error {
	if f.RenderErr != nil {
		return f.RenderErr
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, []byte("fake"), 0644); err != nil {
		return err
	}
	f.Renders = append(f.Renders, outputPath)
	return nil
}

// Close is a no-op
func (f *Fake) Close() error { return nil }
