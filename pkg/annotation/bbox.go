// Package annotation turns placed 3D objects into 2D detection labels:
// vertex projection to pixel-space bounding boxes, validity filtering, YOLO
// serialization and whole-dataset validation.
package annotation

import (
	"math"

	"github.com/psantana5/synthgen/pkg/render"
)

// BoundingBox is a 2D axis-aligned box in both pixel and normalized form
type BoundingBox struct {
	XMin int
	YMin int
	XMax int
	YMax int

	XCenter float64 // normalized [0,1]
	YCenter float64 // normalized [0,1]
	Width   float64 // normalized (0,1]
	Height  float64 // normalized (0,1]

	Area int // pixels
}

// ProjectBBox computes the bounding box of an object's projected vertex set.
// Vertices behind the camera are dropped; the box is clamped to the frame.
// Returns false when the object is not visible: no vertex in front of the
// camera, or the clamp collapsed the box to zero area.
func ProjectBBox(b render.Backend, h render.Handle, width, height int) (BoundingBox, bool) {
	verts, err := b.ObjectVertices(h)
	if err != nil {
		return BoundingBox{}, false
	}

	xMin, yMin := math.MaxInt32, math.MaxInt32
	xMax, yMax := math.MinInt32, math.MinInt32
	any := false

	for _, v := range verts {
		x, y, depth := b.ProjectWorldToCamera(v)
		if depth < 0 {
			continue
		}
		px := int(math.Round(float64(x) * float64(width)))
		py := int(math.Round(float64(1-y) * float64(height))) // image origin is top-left
		if px < xMin {
			xMin = px
		}
		if px > xMax {
			xMax = px
		}
		if py < yMin {
			yMin = py
		}
		if py > yMax {
			yMax = py
		}
		any = true
	}
	if !any {
		return BoundingBox{}, false
	}

	if xMin < 0 {
		xMin = 0
	}
	if yMin < 0 {
		yMin = 0
	}
	if xMax > width {
		xMax = width
	}
	if yMax > height {
		yMax = height
	}

	w := xMax - xMin
	hgt := yMax - yMin
	if w <= 0 || hgt <= 0 {
		return BoundingBox{}, false
	}

	return BoundingBox{
		XMin:    xMin,
		YMin:    yMin,
		XMax:    xMax,
		YMax:    yMax,
		XCenter: float64(xMin+xMax) / 2 / float64(width),
		YCenter: float64(yMin+yMax) / 2 / float64(height),
		Width:   float64(w) / float64(width),
		Height:  float64(hgt) / float64(height),
		Area:    w * hgt,
	}, true
}

// ValidBox reports whether a box passes the annotation filters: minimum
// pixel area and normalized bounds.
func ValidBox(b BoundingBox, minArea int) bool {
	if b.Area < minArea {
		return false
	}
	if b.XCenter < 0 || b.XCenter > 1 || b.YCenter < 0 || b.YCenter > 1 {
		return false
	}
	if b.Width <= 0 || b.Width > 1 || b.Height <= 0 || b.Height > 1 {
		return false
	}
	return true
}
