package randomize

import (
	"math"
	"math/rand"
	"testing"

	"github.com/psantana5/synthgen/pkg/config"
	"github.com/psantana5/synthgen/pkg/render"
)

func newTestRandomizer(seed int64) *Randomizer {
	return New(config.Default().Randomization, rand.New(rand.NewSource(seed)))
}

func TestLightsWithinConfiguredRanges(t *testing.T) {
	r := newTestRandomizer(1)

	for i := 0; i < 200; i++ {
		lights := r.Lights()
		if len(lights) < 2 || len(lights) > 4 {
			t.Fatalf("light count %d outside [2,4]", len(lights))
		}
		for _, l := range lights {
			if l.Energy < 500 || l.Energy > 2000 {
				t.Errorf("light energy %v outside [500,2000]", l.Energy)
			}
			if l.Location.Z <= 0 {
				t.Errorf("light below the ground plane: %+v", l.Location)
			}
			for c, v := range l.Color {
				if v < 0 || v > 1 {
					t.Errorf("light color channel %d out of [0,1]: %v", c, v)
				}
			}
		}
	}
}

func TestCameraPose(t *testing.T) {
	r := newTestRandomizer(2)
	focus := render.Vec3{X: 0, Y: 0, Z: 0.5}

	for i := 0; i < 200; i++ {
		cam := r.Camera(focus)

		if cam.LookAt != focus {
			t.Fatalf("camera look-at %+v, want %+v", cam.LookAt, focus)
		}
		if cam.FocalLength < 40 || cam.FocalLength > 60 {
			t.Errorf("focal length %v outside [40,60]", cam.FocalLength)
		}

		d := cam.Location.Sub(focus).Length()
		if d < 0.5-1e-3 || d > 2.0+1e-3 {
			t.Errorf("camera distance %v outside [0.5,2.0]", d)
		}

		// default angle range is ±30°, so elevation stays within
		// 45°±30° and the camera never dips below the focus plane
		elevation := math.Acos(float64(cam.Location.Z-focus.Z) / float64(d))
		deg := elevation * 180 / math.Pi
		if deg < 15-0.5 || deg > 75+0.5 {
			t.Errorf("camera elevation %.1f° outside [15,75]", deg)
		}
	}
}

func TestBackgroundBounds(t *testing.T) {
	r := newTestRandomizer(3)

	for i := 0; i < 200; i++ {
		bg := r.Background()
		for c := 0; c < 3; c++ {
			if bg[c] < 0 || bg[c] > 1.0 {
				t.Errorf("background channel %d out of bounds: %v", c, bg[c])
			}
		}
		if bg[3] != 1 {
			t.Errorf("background alpha %v, want 1", bg[3])
		}
	}
}

func TestObjectScaleBounds(t *testing.T) {
	r := newTestRandomizer(4)
	for i := 0; i < 200; i++ {
		s := r.ObjectScale()
		if s < 0.8 || s > 1.2 {
			t.Errorf("object scale %v outside [0.8,1.2]", s)
		}
	}
}

func TestSameSeedSameSequence(t *testing.T) {
	a := newTestRandomizer(42)
	b := newTestRandomizer(42)

	for i := 0; i < 20; i++ {
		la, lb := a.Lights(), b.Lights()
		if len(la) != len(lb) {
			t.Fatalf("light counts diverged: %d vs %d", len(la), len(lb))
		}
		for j := range la {
			if la[j] != lb[j] {
				t.Fatalf("light %d diverged: %+v vs %+v", j, la[j], lb[j])
			}
		}
		ca, cb := a.Camera(render.Vec3{}), b.Camera(render.Vec3{})
		if ca != cb {
			t.Fatalf("camera diverged: %+v vs %+v", ca, cb)
		}
	}
}

func TestKelvinToRGB(t *testing.T) {
	tests := []struct {
		name string
		temp float32
		want [3]float32
	}{
		{"warm end", 3000, [3]float32{1, 0, 0}},
		{"neutral", 6500, [3]float32{1, 1, 1}},
		{"mid", 4000, [3]float32{1, (4000 - 3000) / 3500.0, 0}},
		{"cool", 8000, [3]float32{1 - (8000-6500)/3500.0, 1, 1}},
		{"very cool clamps", 20000, [3]float32{0, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := KelvinToRGB(tt.temp)
			for c := 0; c < 3; c++ {
				if math.Abs(float64(got[c]-tt.want[c])) > 1e-6 {
					t.Errorf("KelvinToRGB(%v)[%d] = %v, want %v", tt.temp, c, got[c], tt.want[c])
				}
			}
		})
	}
}

func TestMaterialBounds(t *testing.T) {
	r := newTestRandomizer(5)
	for i := 0; i < 200; i++ {
		m := r.Material()
		for c := 0; c < 3; c++ {
			if m.Color[c] < 0.7-1e-6 || m.Color[c] > 0.9+1e-6 {
				t.Errorf("material color channel %d outside [0.7,0.9]: %v", c, m.Color[c])
			}
		}
		if m.Roughness < 0.3-1e-6 || m.Roughness > 0.7+1e-6 {
			t.Errorf("material roughness outside [0.3,0.7]: %v", m.Roughness)
		}
	}
}
