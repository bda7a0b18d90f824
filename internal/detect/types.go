// Package detect converts raw face-detector network outputs into
// deduplicated detections in original-frame pixel coordinates.
package detect

import "math"

// Point is a 2D point in pixel coordinates.
type Point struct {
	X float64
	Y float64
}

// Distance returns the Euclidean distance to another point.
func (p Point) Distance(o Point) float64 {
	dx := p.X - o.X
	dy := p.Y - o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Box is an axis-aligned bounding box [x1, y1, x2, y2] in pixels.
type Box struct {
	X1 int
	Y1 int
	X2 int
	Y2 int
}

// Width returns the box width in pixels.
func (b Box) Width() int {
	return b.X2 - b.X1
}

// Height returns the box height in pixels.
func (b Box) Height() int {
	return b.Y2 - b.Y1
}

// Landmark indices within Detection.Landmarks.
const (
	LandmarkLeftEye = iota
	LandmarkRightEye
	LandmarkNose
	LandmarkLeftMouth
	LandmarkRightMouth
	LandmarkCount
)

// Detection is a single qualifying face in one frame.
type Detection struct {
	Box       Box
	Landmarks [LandmarkCount]Point
	Score     float64
}

// Centroid returns the center of the detection box.
func (d Detection) Centroid() Point {
	return Point{
		X: float64(d.Box.X1+d.Box.X2) / 2,
		Y: float64(d.Box.Y1+d.Box.Y2) / 2,
	}
}

// StrideOutput holds the raw network tensors for a single stride level,
// flattened in anchor order (two anchors per feature-map cell).
type StrideOutput struct {
	Stride    int
	Scores    []float32 // one score per anchor
	Boxes     []float32 // four offsets per anchor: left, top, right, bottom
	Keypoints []float32 // ten offsets per anchor: five (x, y) pairs
}

// RawOutput is everything the decoder needs from one inference call:
// the per-stride tensors plus the resize/pad transform that was applied
// to the frame before inference.
type RawOutput struct {
	Strides []StrideOutput
	Scale   float64 // resize factor applied to the original frame
	PadLeft float64 // horizontal letterbox offset in input pixels
	PadTop  float64 // vertical letterbox offset in input pixels
}
