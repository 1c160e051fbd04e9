package annotation

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg" // decoder registration
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Splits are the dataset partitions, in generation order
var Splits = []string{"train", "test", "val"}

// SplitReport summarizes validation of one dataset split
type SplitReport struct {
	Name         string
	Images       int
	Valid        int
	Invalid      int
	OrphanImages int // images without a label file
	OrphanLabels int // label files without an image
}

// Report summarizes validation of a whole dataset tree
type Report struct {
	Splits []SplitReport
	Errors []string
}

// TotalInvalid returns the invalid file count across splits plus structural
// errors
func (r *Report) TotalInvalid() int {
	n := len(r.Errors)
	for _, s := range r.Splits {
		n += s.Invalid
	}
	return n
}

// ValidateDataset walks a generated dataset directory and checks every
// image/label pair: pairing, YOLO line format and normalized bounds.
func ValidateDataset(dir string) (*Report, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("dataset directory: %w", err)
	}

	report := &Report{}
	for _, split := range Splits {
		sr := SplitReport{Name: split}
		imagesDir := filepath.Join(dir, split, "images")
		labelsDir := filepath.Join(dir, split, "labels")

		if _, err := os.Stat(imagesDir); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("missing %s/images", split))
			report.Splits = append(report.Splits, sr)
			continue
		}
		if _, err := os.Stat(labelsDir); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("missing %s/labels", split))
			report.Splits = append(report.Splits, sr)
			continue
		}

		images, err := listByExt(imagesDir, ".jpg", ".jpeg", ".png")
		if err != nil {
			return nil, err
		}
		sr.Images = len(images)

		seen := make(map[string]bool)
		for _, img := range images {
			stem := strings.TrimSuffix(filepath.Base(img), filepath.Ext(img))
			seen[stem] = true
			labelPath := filepath.Join(labelsDir, stem+".txt")

			records, err := ParseYOLO(labelPath)
			if errors.Is(err, fs.ErrNotExist) {
				sr.OrphanImages++
				continue
			}
			if err != nil {
				report.Errors = append(report.Errors, err.Error())
				sr.Invalid++
				continue
			}
			if len(records) == 0 {
				report.Errors = append(report.Errors, fmt.Sprintf("empty label file: %s", labelPath))
				sr.Invalid++
				continue
			}

			ok := true
			for _, rec := range records {
				if !ValidRecord(rec) {
					report.Errors = append(report.Errors, fmt.Sprintf("out-of-bounds annotation in %s", labelPath))
					ok = false
					break
				}
			}
			if ok {
				sr.Valid++
			} else {
				sr.Invalid++
			}
		}

		labels, err := listByExt(labelsDir, ".txt")
		if err != nil {
			return nil, err
		}
		for _, l := range labels {
			stem := strings.TrimSuffix(filepath.Base(l), ".txt")
			if !seen[stem] {
				sr.OrphanLabels++
			}
		}

		report.Splits = append(report.Splits, sr)
	}
	return report, nil
}

func listByExt(dir string, exts ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range exts {
			if ext == want {
				out = append(out, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Visualize writes copies of labeled images with their bounding boxes drawn
// in, under <dir>/visualize. Returns the number of images written.
func Visualize(dir string) (int, error) {
	outDir := filepath.Join(dir, "visualize")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create visualize directory: %w", err)
	}

	written := 0
	for _, split := range Splits {
		imagesDir := filepath.Join(dir, split, "images")
		labelsDir := filepath.Join(dir, split, "labels")
		images, err := listByExt(imagesDir, ".jpg", ".jpeg", ".png")
		if err != nil {
			continue
		}
		for _, imgPath := range images {
			stem := strings.TrimSuffix(filepath.Base(imgPath), filepath.Ext(imgPath))
			records, err := ParseYOLO(filepath.Join(labelsDir, stem+".txt"))
			if err != nil || len(records) == 0 {
				continue
			}
			if err := drawBoxes(imgPath, filepath.Join(outDir, stem+".png"), records); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}

func drawBoxes(srcPath, dstPath string, records []Record) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open image %s: %w", srcPath, err)
	}
	src, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to decode image %s: %w", srcPath, err)
	}

	bounds := src.Bounds()
	img := image.NewRGBA(bounds)
	draw.Draw(img, bounds, src, bounds.Min, draw.Src)

	w := bounds.Dx()
	h := bounds.Dy()
	boxColor := color.RGBA{255, 0, 0, 255}
	for _, r := range records {
		x0 := int((r.XCenter - r.Width/2) * float64(w))
		x1 := int((r.XCenter + r.Width/2) * float64(w))
		y0 := int((r.YCenter - r.Height/2) * float64(h))
		y1 := int((r.YCenter + r.Height/2) * float64(h))
		drawRect(img, x0, y0, x1, y1, boxColor)
	}

	out, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dstPath, err)
	}
	defer out.Close()
	return png.Encode(out, img)
}

func drawRect(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	b := img.Bounds()
	clampX := func(x int) int {
		if x < b.Min.X {
			return b.Min.X
		}
		if x > b.Max.X-1 {
			return b.Max.X - 1
		}
		return x
	}
	clampY := func(y int) int {
		if y < b.Min.Y {
			return b.Min.Y
		}
		if y > b.Max.Y-1 {
			return b.Max.Y - 1
		}
		return y
	}
	x0, x1 = clampX(x0), clampX(x1)
	y0, y1 = clampY(y0), clampY(y1)
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, c)
		img.SetRGBA(x, y1, c)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, c)
		img.SetRGBA(x1, y, c)
	}
}
