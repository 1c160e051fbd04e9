package annotation

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Annotation is one labeled object in an image
type Annotation struct {
	ClassID int
	Box     BoundingBox
}

// WriteYOLO writes one YOLO line per annotation, in input order:
//
//	<class_id> <x_center> <y_center> <width> <height>
//
// with six-decimal fixed-point normalized floats. Parent directories are
// created on demand.
func WriteYOLO(annotations []Annotation, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create label directory: %w", err)
	}

	var sb strings.Builder
	for _, a := range annotations {
		fmt.Fprintf(&sb, "%d %.6f %.6f %.6f %.6f\n",
			a.ClassID, a.Box.XCenter, a.Box.YCenter, a.Box.Width, a.Box.Height)
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write label file %s: %w", path, err)
	}
	return nil
}

// Record is one parsed YOLO line. Only the normalized fields survive a
// round trip through the text format.
type Record struct {
	ClassID int
	XCenter float64
	YCenter float64
	Width   float64
	Height  float64
}

// ParseYOLO reads a YOLO label file
func ParseYOLO(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label file: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 5 {
			return nil, fmt.Errorf("%s:%d: expected 5 fields, got %d", path, lineNo, len(fields))
		}
		classID, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid class id: %w", path, lineNo, err)
		}
		vals := make([]float64, 4)
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: invalid value: %w", path, lineNo, err)
			}
			vals[i] = v
		}
		records = append(records, Record{
			ClassID: classID,
			XCenter: vals[0],
			YCenter: vals[1],
			Width:   vals[2],
			Height:  vals[3],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read label file %s: %w", path, err)
	}
	return records, nil
}

// ValidRecord reports whether a parsed record satisfies the normalized
// bounds invariants
func ValidRecord(r Record) bool {
	if r.ClassID < 0 {
		return false
	}
	if r.XCenter < 0 || r.XCenter > 1 || r.YCenter < 0 || r.YCenter > 1 {
		return false
	}
	if r.Width <= 0 || r.Width > 1 || r.Height <= 0 || r.Height > 1 {
		return false
	}
	return true
}
