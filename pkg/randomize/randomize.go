// Package randomize samples the domain randomization parameters for one
// image: lighting rigs, camera poses, background colors and material jitter,
// all drawn from configured ranges through a single seeded random source.
package randomize

import (
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/psantana5/synthgen/pkg/config"
	"github.com/psantana5/synthgen/pkg/render"
)

// LightSpec is one sampled light source
type LightSpec struct {
	Kind     render.LightKind
	Energy   float32
	Location render.Vec3
	Color    [3]float32
}

// CameraSpec is a sampled camera pose
type CameraSpec struct {
	Location    render.Vec3
	LookAt      render.Vec3
	FocalLength float32
}

// MaterialSpec is a sampled flat material
type MaterialSpec struct {
	Color     render.RGBA
	Roughness float32
}

// Randomizer draws concrete scene parameters from the configured ranges.
// All sampling goes through the one rand.Rand it was constructed with, so a
// fixed seed reproduces the full parameter sequence.
type Randomizer struct {
	cfg config.RandomizationConfig
	rng *rand.Rand
}

// New creates a Randomizer. The config must already be validated; sampling
// itself never fails.
func New(cfg config.RandomizationConfig, rng *rand.Rand) *Randomizer {
	return &Randomizer{cfg: cfg, rng: rng}
}

func (r *Randomizer) uniform(min, max float64) float32 {
	return float32(min + r.rng.Float64()*(max-min))
}

func (r *Randomizer) uniformRange(rg config.Range) float32 {
	return r.uniform(rg.Min(), rg.Max())
}

var lightKinds = []render.LightKind{render.LightPoint, render.LightDirectional, render.LightArea}

// Lights samples a lighting rig of 2 to 4 lights
func (r *Randomizer) Lights() []LightSpec {
	count := 2 + r.rng.Intn(3)
	lights := make([]LightSpec, 0, count)

	for i := 0; i < count; i++ {
		kind := lightKinds[r.rng.Intn(len(lightKinds))]
		energy := r.uniformRange(r.cfg.LightingIntensityRange)

		// directional lights sit far out; the rest orbit the scene
		var distance float32 = 10
		if kind != render.LightDirectional {
			distance = r.uniform(2, 5)
		}
		azimuth := r.uniform(0, float64(2*math32.Pi))
		elevation := r.uniform(float64(math32.Pi/6), float64(math32.Pi/3))

		location := render.Vec3{
			X: distance * math32.Cos(azimuth) * math32.Sin(elevation),
			Y: distance * math32.Sin(azimuth) * math32.Sin(elevation),
			Z: distance * math32.Cos(elevation),
		}

		temp := r.uniformRange(r.cfg.LightingColorTempRange)
		lights = append(lights, LightSpec{
			Kind:     kind,
			Energy:   energy,
			Location: location,
			Color:    KelvinToRGB(temp),
		})
	}
	return lights
}

// Camera samples a camera pose orbiting the focus point
func (r *Randomizer) Camera(focus render.Vec3) CameraSpec {
	distance := r.uniformRange(r.cfg.CameraDistanceRange)
	azimuth := r.uniform(0, float64(2*math32.Pi))

	angleMin := degToRad(float32(r.cfg.CameraAngleRange.Min()))
	angleMax := degToRad(float32(r.cfg.CameraAngleRange.Max()))
	elevation := math32.Pi/4 + r.uniform(float64(angleMin), float64(angleMax))

	location := render.Vec3{
		X: focus.X + distance*math32.Cos(azimuth)*math32.Sin(elevation),
		Y: focus.Y + distance*math32.Sin(azimuth)*math32.Sin(elevation),
		Z: focus.Z + distance*math32.Cos(elevation),
	}

	return CameraSpec{
		Location:    location,
		LookAt:      focus,
		FocalLength: 50 + r.uniform(-10, 10),
	}
}

// Background samples a background color: a brightness from the configured
// range with an independent multiplicative tint per channel, clamped to the
// range's upper bound. Alpha is always 1.
func (r *Randomizer) Background() render.RGBA {
	brightness := r.uniformRange(r.cfg.BackgroundBrightnessRange)
	max := float32(r.cfg.BackgroundBrightnessRange.Max())

	var c render.RGBA
	for i := 0; i < 3; i++ {
		v := brightness * r.uniform(0.95, 1.0)
		if v < 0 {
			v = 0
		}
		if v > max {
			v = max
		}
		c[i] = v
	}
	c[3] = 1
	return c
}

// ObjectScale samples a uniform scale factor for one object
func (r *Randomizer) ObjectScale() float32 {
	return r.uniformRange(r.cfg.ObjectScaleRange)
}

// Material samples a jittered flat material around a neutral gray base
func (r *Randomizer) Material() MaterialSpec {
	var color render.RGBA
	for i := 0; i < 3; i++ {
		color[i] = clamp01(0.8 + r.uniform(-0.1, 0.1))
	}
	color[3] = 1
	return MaterialSpec{
		Color:     color,
		Roughness: clamp01(0.5 + r.uniform(-0.2, 0.2)),
	}
}

// KelvinToRGB converts a color temperature to an RGB tint. This is a linear
// approximation over the 3000-6500K working range, not a blackbody curve.
func KelvinToRGB(temp float32) [3]float32 {
	if temp <= 6500 {
		return [3]float32{
			1,
			clamp01((temp - 3000) / 3500),
			clamp01((temp - 4000) / 2500),
		}
	}
	return [3]float32{
		clamp01(1 - (temp-6500)/3500),
		1,
		1,
	}
}

func degToRad(deg float32) float32 {
	return deg * math32.Pi / 180
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
