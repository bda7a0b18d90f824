package detect

import "sort"

const anchorsPerCell = 2

// DecoderConfig controls score filtering and duplicate suppression.
type DecoderConfig struct {
	InputSize      int     // square network input resolution (default 320)
	Strides        []int   // feature-map strides (default 8, 16, 32)
	ScoreThreshold float64 // minimum anchor score (default 0.6)
	NMSIoU         float64 // IoU above which a box is suppressed (default 0.4)
}

// Decoder turns raw per-stride tensors into frame-space detections.
// The anchor grid depends only on the input resolution, so it is
// computed once at construction and reused for every frame.
type Decoder struct {
	cfg     DecoderConfig
	anchors map[int][]Point // stride -> anchor centers in input space
}

// NewDecoder precomputes the anchor grid for each stride.
func NewDecoder(cfg DecoderConfig) *Decoder {
	if cfg.InputSize <= 0 {
		cfg.InputSize = 320
	}
	if len(cfg.Strides) == 0 {
		cfg.Strides = []int{8, 16, 32}
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = 0.6
	}
	if cfg.NMSIoU <= 0 {
		cfg.NMSIoU = 0.4
	}

	anchors := make(map[int][]Point, len(cfg.Strides))
	for _, stride := range cfg.Strides {
		anchors[stride] = anchorCenters(cfg.InputSize, stride)
	}

	return &Decoder{cfg: cfg, anchors: anchors}
}

// anchorCenters builds the flattened anchor-center grid for one stride:
// row-major cells, each repeated anchorsPerCell times, matching the
// layout of the network's flattened output tensors.
func anchorCenters(inputSize, stride int) []Point {
	cells := inputSize / stride
	centers := make([]Point, 0, cells*cells*anchorsPerCell)
	for y := 0; y < cells; y++ {
		for x := 0; x < cells; x++ {
			c := Point{
				X: (float64(x) + 0.5) * float64(stride),
				Y: (float64(y) + 0.5) * float64(stride),
			}
			for a := 0; a < anchorsPerCell; a++ {
				centers = append(centers, c)
			}
		}
	}
	return centers
}

// Decode converts raw network outputs into detections in original-frame
// pixel coordinates and removes duplicates with greedy NMS. A frame in
// which nothing passes the score threshold yields an empty slice.
func (d *Decoder) Decode(raw RawOutput) []Detection {
	var candidates []Detection

	for _, so := range raw.Strides {
		anchors, ok := d.anchors[so.Stride]
		if !ok {
			continue
		}
		candidates = append(candidates, d.decodeStride(so, anchors, raw)...)
	}

	if len(candidates) == 0 {
		return nil
	}

	return nonMaxSuppression(candidates, d.cfg.NMSIoU)
}

// decodeStride gathers above-threshold anchors for one stride and decodes
// boxes and landmarks back into original-frame coordinates.
func (d *Decoder) decodeStride(so StrideOutput, anchors []Point, raw RawOutput) []Detection {
	n := len(so.Scores)
	if n > len(anchors) {
		n = len(anchors)
	}

	stride := float64(so.Stride)
	var dets []Detection

	for i := 0; i < n; i++ {
		score := float64(so.Scores[i])
		if score <= d.cfg.ScoreThreshold {
			continue
		}
		if (i+1)*4 > len(so.Boxes) || (i+1)*10 > len(so.Keypoints) {
			break
		}

		cx, cy := anchors[i].X, anchors[i].Y
		box := so.Boxes[i*4 : i*4+4]

		det := Detection{
			Box: Box{
				X1: int(raw.toFrameX(cx - float64(box[0])*stride)),
				Y1: int(raw.toFrameY(cy - float64(box[1])*stride)),
				X2: int(raw.toFrameX(cx + float64(box[2])*stride)),
				Y2: int(raw.toFrameY(cy + float64(box[3])*stride)),
			},
			Score: score,
		}

		kps := so.Keypoints[i*10 : i*10+10]
		for k := 0; k < LandmarkCount; k++ {
			det.Landmarks[k] = Point{
				X: raw.toFrameX(cx + float64(kps[k*2])*stride),
				Y: raw.toFrameY(cy + float64(kps[k*2+1])*stride),
			}
		}

		dets = append(dets, det)
	}

	return dets
}

// toFrameX inverts the letterbox pad and resize applied before inference.
func (r RawOutput) toFrameX(x float64) float64 {
	return (x - r.PadLeft) / r.Scale
}

func (r RawOutput) toFrameY(y float64) float64 {
	return (y - r.PadTop) / r.Scale
}

// nonMaxSuppression keeps the highest-scored box of each overlapping
// cluster. Class-agnostic: every candidate competes with every other.
func nonMaxSuppression(dets []Detection, iouThreshold float64) []Detection {
	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Score > dets[j].Score
	})

	kept := make([]Detection, 0, len(dets))
	for _, cand := range dets {
		suppressed := false
		for _, k := range kept {
			if ComputeIoU(cand.Box, k.Box) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, cand)
		}
	}
	return kept
}

// ComputeIoU calculates Intersection over Union between two boxes in the
// same coordinate system.
func ComputeIoU(a, b Box) float64 {
	x1 := max(a.X1, b.X1)
	y1 := max(a.Y1, b.Y1)
	x2 := min(a.X2, b.X2)
	y2 := min(a.Y2, b.Y2)

	if x2 <= x1 || y2 <= y1 {
		return 0 // No intersection
	}

	intersection := float64((x2 - x1) * (y2 - y1))

	areaA := float64(a.Width() * a.Height())
	areaB := float64(b.Width() * b.Height())
	union := areaA + areaB - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}
