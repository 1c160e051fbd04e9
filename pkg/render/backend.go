package render

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Vec3 is a point or direction in world space
type Vec3 struct {
	X, Y, Z float32
}

// Add returns v + o
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v - o
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v * s
func (v Vec3) Scale(s float32) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the dot product of v and o
func (v Vec3) Dot(o Vec3) float32 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

// Cross returns the cross product of v and o
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// Length returns the Euclidean length of v
func (v Vec3) Length() float32 {
	return math32.Sqrt(v.Dot(v))
}

// Normalized returns v scaled to unit length. The zero vector is returned
// unchanged.
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// LightKind identifies a light source type
type LightKind string

const (
	LightPoint       LightKind = "point"
	LightDirectional LightKind = "directional"
	LightArea        LightKind = "area"
)

// BodyKind identifies how an object participates in rigid body simulation
type BodyKind string

const (
	BodyActive  BodyKind = "active"
	BodyPassive BodyKind = "passive"
)

// RGBA is a color with straight alpha, channels in [0,1]
type RGBA [4]float32

// Handle identifies an object inside a backend's scene. Handles are only
// valid until the next ResetScene.
type Handle int

// Backend is the narrow surface the generation pipeline needs from a
// rendering/physics engine. Implementations own one mutable scene; callers
// must not use a backend from more than one goroutine.
type Backend interface {
	// ResetScene clears all objects, lights and camera state
	ResetScene() error

	// AddPlane adds a square plane of the given edge size centered at location
	AddPlane(size float32, location Vec3) (Handle, error)

	// AddLight adds a light source and returns its handle
	AddLight(kind LightKind, energy float32, location Vec3) (Handle, error)

	// SetLightColor tints a light, channels in [0,1]
	SetLightColor(h Handle, rgb [3]float32) error

	// SetBackground sets the scene background color
	SetBackground(color RGBA) error

	// LoadModel loads a model file into the scene at the given uniform scale
	// and location. A missing or unreadable asset returns an error and leaves
	// the scene unchanged.
	LoadModel(path string, scale float32, location Vec3) (Handle, error)

	// SetObjectMaterial assigns a flat material to an object
	SetObjectMaterial(h Handle, color RGBA, roughness float32) error

	// ApplyRigidBody enables rigid body simulation for an object
	ApplyRigidBody(h Handle, kind BodyKind, mass, friction, restitution float32) error

	// StepPhysics advances the simulation over the given frame interval and
	// freezes objects at their final transforms
	StepPhysics(startFrame, endFrame int) error

	// SetCameraPose positions the camera at location, orients it toward
	// lookAt and sets the focal length in millimeters
	SetCameraPose(location, lookAt Vec3, focalLength float32) error

	// ObjectVertices returns an object's vertex set in world space
	ObjectVertices(h Handle) ([]Vec3, error)

	// ProjectWorldToCamera maps a world point to camera-normalized view
	// coordinates: x and y in [0,1] across the frame when visible, and the
	// depth along the view axis (negative means behind the camera).
	ProjectWorldToCamera(p Vec3) (x, y, depth float32)

	// Render rasterizes the scene to the given image path
	Render(outputPath string) error

	// Close releases backend resources
	Close() error
}

// Settings carries the render parameters a backend is constructed with
type Settings struct {
	Width      int
	Height     int
	FileFormat string // "JPEG" or "PNG"
	Quality    int    // JPEG quality 0-100
	Samples    int
	UseGPU     bool
}

// Open constructs the named backend. The engine name comes from the
// render.engine config field.
func Open(engine string, s Settings) (Backend, error) {
	switch engine {
	case "software":
		return NewSoftware(s), nil
	default:
		return nil, fmt.Errorf("unknown render engine %q", engine)
	}
}
