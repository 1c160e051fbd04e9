package render

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
)

// sensorWidth is the horizontal sensor size in millimeters (full frame)
const sensorWidth = 36.0

type swMaterial struct {
	color     RGBA
	roughness float32
}

type swBody struct {
	kind        BodyKind
	mass        float32
	friction    float32
	restitution float32
}

type swObject struct {
	verts    []Vec3    // model space
	faces    [][3]int  // vertex indices
	scale    float32
	location Vec3
	material swMaterial
	body     *swBody
	plane    bool
}

type swLight struct {
	kind     LightKind
	energy   float32
	location Vec3
	rgb      [3]float32
}

type swCamera struct {
	location Vec3
	lookAt   Vec3
	focal    float32 // mm
	forward  Vec3
	right    Vec3
	up       Vec3
	set      bool
}

// Software is a deterministic CPU render backend. It loads OBJ geometry,
// settles active bodies analytically onto the ground plane and rasterizes
// flat-shaded images, which is enough signal for detection training data
// and for exercising the full pipeline without an external engine.
type Software struct {
	settings   Settings
	objects    map[Handle]*swObject
	order      []Handle
	lights     []swLight
	background RGBA
	camera     swCamera
	next       Handle
}

// NewSoftware creates a software backend with the given render settings
func NewSoftware(s Settings) *Software {
	b := &Software{settings: s}
	b.ResetScene()
	return b
}

// ResetScene clears all scene state
func (b *Software) ResetScene() error {
	b.objects = make(map[Handle]*swObject)
	b.order = nil
	b.lights = nil
	b.background = RGBA{1, 1, 1, 1}
	b.camera = swCamera{}
	return nil
}

func (b *Software) add(o *swObject) Handle {
	b.next++
	h := b.next
	b.objects[h] = o
	b.order = append(b.order, h)
	return h
}

// AddPlane adds a square ground plane
func (b *Software) AddPlane(size float32, location Vec3) (Handle, error) {
	half := size / 2
	o := &swObject{
		verts: []Vec3{
			{-half, -half, 0}, {half, -half, 0},
			{half, half, 0}, {-half, half, 0},
		},
		faces:    [][3]int{{0, 1, 2}, {0, 2, 3}},
		scale:    1,
		location: location,
		material: swMaterial{color: RGBA{0.55, 0.52, 0.48, 1}, roughness: 0.9},
		plane:    true,
	}
	return b.add(o), nil
}

// AddLight adds a light source
func (b *Software) AddLight(kind LightKind, energy float32, location Vec3) (Handle, error) {
	switch kind {
	case LightPoint, LightDirectional, LightArea:
	default:
		return 0, fmt.Errorf("unknown light kind %q", kind)
	}
	b.lights = append(b.lights, swLight{
		kind:     kind,
		energy:   energy,
		location: location,
		rgb:      [3]float32{1, 1, 1},
	})
	return Handle(-len(b.lights)), nil
}

// SetLightColor tints a previously added light
func (b *Software) SetLightColor(h Handle, rgb [3]float32) error {
	idx := int(-h) - 1
	if idx < 0 || idx >= len(b.lights) {
		return fmt.Errorf("invalid light handle %d", h)
	}
	b.lights[idx].rgb = rgb
	return nil
}

// SetBackground sets the background color
func (b *Software) SetBackground(c RGBA) error {
	b.background = c
	return nil
}

// LoadModel loads an OBJ file. Only vertex and face statements are read;
// anything else in the file is ignored.
func (b *Software) LoadModel(path string, scale float32, location Vec3) (Handle, error) {
	verts, faces, err := loadOBJ(path)
	if err != nil {
		return 0, err
	}
	o := &swObject{
		verts:    verts,
		faces:    faces,
		scale:    scale,
		location: location,
		material: swMaterial{color: RGBA{0.8, 0.8, 0.8, 1}, roughness: 0.5},
	}
	return b.add(o), nil
}

func loadOBJ(path string) ([]Vec3, [][3]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open model %s: %w", path, err)
	}
	defer f.Close()

	var verts []Vec3
	var faces [][3]int

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, nil, fmt.Errorf("malformed vertex in %s: %q", path, scanner.Text())
			}
			var v Vec3
			for i, p := range []*float32{&v.X, &v.Y, &v.Z} {
				val, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return nil, nil, fmt.Errorf("malformed vertex in %s: %w", path, err)
				}
				*p = float32(val)
			}
			verts = append(verts, v)
		case "f":
			if len(fields) < 4 {
				continue
			}
			idx := make([]int, 0, len(fields)-1)
			for _, fld := range fields[1:] {
				// "f 1/2/3" forms: the vertex index is the first component
				s := strings.SplitN(fld, "/", 2)[0]
				n, err := strconv.Atoi(s)
				if err != nil {
					return nil, nil, fmt.Errorf("malformed face in %s: %w", path, err)
				}
				if n < 0 {
					n = len(verts) + 1 + n
				}
				idx = append(idx, n-1)
			}
			// fan-triangulate polygons
			for i := 1; i+1 < len(idx); i++ {
				faces = append(faces, [3]int{idx[0], idx[i], idx[i+1]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read model %s: %w", path, err)
	}
	if len(verts) == 0 {
		return nil, nil, fmt.Errorf("model %s contains no vertices", path)
	}
	for _, f := range faces {
		for _, i := range f {
			if i < 0 || i >= len(verts) {
				return nil, nil, fmt.Errorf("model %s references vertex %d out of %d", path, i+1, len(verts))
			}
		}
	}
	return verts, faces, nil
}

// SetObjectMaterial assigns a flat material
func (b *Software) SetObjectMaterial(h Handle, c RGBA, roughness float32) error {
	o, ok := b.objects[h]
	if !ok {
		return fmt.Errorf("invalid object handle %d", h)
	}
	o.material = swMaterial{color: c, roughness: roughness}
	return nil
}

// ApplyRigidBody marks an object as a simulation participant
func (b *Software) ApplyRigidBody(h Handle, kind BodyKind, mass, friction, restitution float32) error {
	o, ok := b.objects[h]
	if !ok {
		return fmt.Errorf("invalid object handle %d", h)
	}
	switch kind {
	case BodyActive, BodyPassive:
	default:
		return fmt.Errorf("unknown body kind %q", kind)
	}
	o.body = &swBody{kind: kind, mass: mass, friction: friction, restitution: restitution}
	return nil
}

// StepPhysics settles every active body onto the ground plane. The settle is
// analytic: the object drops straight down until its lowest vertex touches
// z=0, which matches the resting pose a full simulation converges to for
// simple convex objects.
func (b *Software) StepPhysics(startFrame, endFrame int) error {
	if endFrame < startFrame {
		return fmt.Errorf("invalid frame interval [%d,%d]", startFrame, endFrame)
	}
	for _, h := range b.order {
		o := b.objects[h]
		if o.body == nil || o.body.kind != BodyActive {
			continue
		}
		minZ := math32.Inf(1)
		for _, v := range o.verts {
			z := v.Z * o.scale
			if z < minZ {
				minZ = z
			}
		}
		o.location.Z = -minZ
	}
	return nil
}

// SetCameraPose positions and orients the camera
func (b *Software) SetCameraPose(location, lookAt Vec3, focalLength float32) error {
	if focalLength <= 0 {
		return fmt.Errorf("focal length must be positive, got %v", focalLength)
	}
	forward := lookAt.Sub(location).Normalized()
	worldUp := Vec3{0, 0, 1}
	if math32.Abs(forward.Dot(worldUp)) > 0.999 {
		worldUp = Vec3{0, 1, 0}
	}
	right := forward.Cross(worldUp).Normalized()
	up := right.Cross(forward)

	b.camera = swCamera{
		location: location,
		lookAt:   lookAt,
		focal:    focalLength,
		forward:  forward,
		right:    right,
		up:       up,
		set:      true,
	}
	return nil
}

// ObjectVertices returns an object's vertices in world space
func (b *Software) ObjectVertices(h Handle) ([]Vec3, error) {
	o, ok := b.objects[h]
	if !ok {
		return nil, fmt.Errorf("invalid object handle %d", h)
	}
	out := make([]Vec3, len(o.verts))
	for i, v := range o.verts {
		out[i] = o.location.Add(v.Scale(o.scale))
	}
	return out, nil
}

// ProjectWorldToCamera maps a world point to normalized view coordinates.
// The sensor fits horizontally; the vertical extent follows the aspect ratio.
func (b *Software) ProjectWorldToCamera(p Vec3) (float32, float32, float32) {
	d := p.Sub(b.camera.location)
	depth := d.Dot(b.camera.forward)
	if depth == 0 {
		return 0, 0, -1
	}
	cx := d.Dot(b.camera.right)
	cy := d.Dot(b.camera.up)

	sensorH := sensorWidth * float32(b.settings.Height) / float32(b.settings.Width)
	x := 0.5 + (b.camera.focal/sensorWidth)*(cx/depth)
	y := 0.5 + (b.camera.focal/sensorH)*(cy/depth)
	return x, y, depth
}

type screenTri struct {
	px    [3][2]float32
	depth float32
	shade [3]float32
}

// Render rasterizes the scene flat-shaded and writes the image file
func (b *Software) Render(outputPath string) error {
	if !b.camera.set {
		return fmt.Errorf("camera pose not set")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w, h := b.settings.Width, b.settings.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := color.RGBA{
		clamp8(b.background[0]), clamp8(b.background[1]), clamp8(b.background[2]), 255,
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, bg)
		}
	}

	var tris []screenTri
	for _, handle := range b.order {
		o := b.objects[handle]
		world, _ := b.ObjectVertices(handle)
		for _, f := range o.faces {
			v0, v1, v2 := world[f[0]], world[f[1]], world[f[2]]
			tri := screenTri{}
			visible := true
			for i, v := range []Vec3{v0, v1, v2} {
				x, y, depth := b.ProjectWorldToCamera(v)
				if depth <= 0 {
					visible = false
					break
				}
				tri.px[i] = [2]float32{x * float32(w), (1 - y) * float32(h)}
				tri.depth += depth / 3
			}
			if !visible {
				continue
			}
			shade := b.shadeFace(v0, v1, v2, o.material)
			tri.shade = shade
			tris = append(tris, tri)
		}
	}

	// painter's algorithm, far to near
	sort.Slice(tris, func(i, j int) bool { return tris[i].depth > tris[j].depth })
	for _, t := range tris {
		fillTriangle(img, t)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create image file %s: %w", outputPath, err)
	}
	defer out.Close()

	switch b.settings.FileFormat {
	case "PNG":
		err = png.Encode(out, img)
	default:
		err = jpeg.Encode(out, img, &jpeg.Options{Quality: b.settings.Quality})
	}
	if err != nil {
		return fmt.Errorf("failed to encode image %s: %w", outputPath, err)
	}
	return nil
}

func (b *Software) shadeFace(v0, v1, v2 Vec3, m swMaterial) [3]float32 {
	normal := v1.Sub(v0).Cross(v2.Sub(v0)).Normalized()
	centroid := v0.Add(v1).Add(v2).Scale(1.0 / 3.0)

	const ambient = 0.25
	var rgb [3]float32
	for c := 0; c < 3; c++ {
		rgb[c] = ambient
	}
	for _, l := range b.lights {
		var dir Vec3
		if l.kind == LightDirectional {
			dir = l.location.Normalized()
		} else {
			dir = l.location.Sub(centroid).Normalized()
		}
		lambert := math32.Abs(normal.Dot(dir))
		strength := l.energy / 2000
		if strength > 1 {
			strength = 1
		}
		for c := 0; c < 3; c++ {
			rgb[c] += lambert * strength * l.rgb[c]
		}
	}
	for c := 0; c < 3; c++ {
		v := rgb[c] * m.color[c]
		if v > 1 {
			v = 1
		}
		rgb[c] = v
	}
	return rgb
}

func fillTriangle(img *image.RGBA, t screenTri) {
	bounds := img.Bounds()
	minX := int(math32.Floor(min3(t.px[0][0], t.px[1][0], t.px[2][0])))
	maxX := int(math32.Ceil(max3(t.px[0][0], t.px[1][0], t.px[2][0])))
	minY := int(math32.Floor(min3(t.px[0][1], t.px[1][1], t.px[2][1])))
	maxY := int(math32.Ceil(max3(t.px[0][1], t.px[1][1], t.px[2][1])))
	if minX < bounds.Min.X {
		minX = bounds.Min.X
	}
	if minY < bounds.Min.Y {
		minY = bounds.Min.Y
	}
	if maxX > bounds.Max.X-1 {
		maxX = bounds.Max.X - 1
	}
	if maxY > bounds.Max.Y-1 {
		maxY = bounds.Max.Y - 1
	}

	c := color.RGBA{clamp8(t.shade[0]), clamp8(t.shade[1]), clamp8(t.shade[2]), 255}
	area := edge(t.px[0], t.px[1], t.px[2])
	if area == 0 {
		return
	}
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := [2]float32{float32(x) + 0.5, float32(y) + 0.5}
			w0 := edge(t.px[1], t.px[2], p)
			w1 := edge(t.px[2], t.px[0], p)
			w2 := edge(t.px[0], t.px[1], p)
			if (w0 >= 0 && w1 >= 0 && w2 >= 0) || (w0 <= 0 && w1 <= 0 && w2 <= 0) {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

func edge(a, b, p [2]float32) float32 {
	return (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
}

func clamp8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v * 255)
}

func min3(a, b, c float32) float32 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func max3(a, b, c float32) float32 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

// Close releases backend resources. The software backend holds none.
func (b *Software) Close() error { return nil }
