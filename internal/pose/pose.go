// Package pose classifies face orientation from the five detector
// landmarks. Purely geometric, no model involved.
package pose

import (
	"math"

	"github.com/dooh-labs/attentiond/internal/detect"
)

const pitchEpsilon = 1e-6

// Thresholds bound how far a face may turn and still count as frontal.
type Thresholds struct {
	YawMax   float64 // nose offset relative to eye distance (default 0.25)
	PitchMax float64 // nose drop relative to eye-mouth span (default 0.7)
}

// DefaultThresholds returns the tuned production values.
func DefaultThresholds() Thresholds {
	return Thresholds{YawMax: 0.25, PitchMax: 0.7}
}

// IsFrontal reports whether the landmarks indicate a camera-facing pose.
// Degenerate geometry (zero eye distance) classifies as non-frontal
// instead of failing.
func IsFrontal(landmarks [detect.LandmarkCount]detect.Point, th Thresholds) bool {
	leftEye := landmarks[detect.LandmarkLeftEye]
	rightEye := landmarks[detect.LandmarkRightEye]
	nose := landmarks[detect.LandmarkNose]
	leftMouth := landmarks[detect.LandmarkLeftMouth]
	rightMouth := landmarks[detect.LandmarkRightMouth]

	eyeMidX := (leftEye.X + rightEye.X) / 2
	eyeDist := math.Abs(leftEye.X - rightEye.X)

	yawRatio := 1.0 // collapsed eyes read as fully turned away
	if eyeDist > 0 {
		yawRatio = math.Abs(nose.X-eyeMidX) / eyeDist
	}

	eyeMidY := (leftEye.Y + rightEye.Y) / 2
	mouthMidY := (leftMouth.Y + rightMouth.Y) / 2
	pitchRatio := math.Abs(nose.Y-eyeMidY) / (mouthMidY - eyeMidY + pitchEpsilon)

	return yawRatio < th.YawMax && pitchRatio < th.PitchMax
}
