package faceauth

import (
	"math"

	"github.com/fasinfasi/Face-Lock-System/internal/extractor"
)

// Landmark geometry gate for enrollment. A frame with closed eyes or a
// heavily tilted head produces a weak reference embedding, and flat photo
// spoofs often fail these same checks. The gate is a heuristic: rejection is
// recoverable (retry with a better frame), never a hard failure.
const (
	// minEyeOpenness is the minimum vertical/horizontal extent ratio of an
	// eye contour. Closed eyes sit well below 0.1.
	minEyeOpenness = 0.15
	// maxEyeTilt is the maximum vertical offset between eye centers,
	// relative to the inter-eye distance.
	maxEyeTilt = 0.25
)

// CheckFaceQuality validates landmark geometry on an enrollment frame.
// Returns ok=false with a human-readable reason on rejection. Faces without
// eye landmarks pass: not every extractor model reports contours, and the
// gate must not lock out such deployments. The preview endpoint exposes the
// same check so the UI can guide the user before submitting.
func CheckFaceQuality(face extractor.Face) (ok bool, reason string) {
	lm := face.Landmarks
	if len(lm.LeftEye) < 3 || len(lm.RightEye) < 3 {
		return true, ""
	}

	leftOpen := eyeOpenness(lm.LeftEye)
	rightOpen := eyeOpenness(lm.RightEye)
	if leftOpen < minEyeOpenness || rightOpen < minEyeOpenness {
		return false, "eyes appear closed, please look at the camera"
	}

	lx, ly := centroid(lm.LeftEye)
	rx, ry := centroid(lm.RightEye)
	interEye := math.Hypot(rx-lx, ry-ly)
	if interEye <= 0 {
		return false, "could not locate both eyes"
	}
	if math.Abs(ry-ly)/interEye > maxEyeTilt {
		return false, "face is tilted, please hold the camera level"
	}

	return true, ""
}

// eyeOpenness is the ratio of the vertical to horizontal extent of an eye
// contour. A blink collapses the vertical extent toward zero.
func eyeOpenness(points [][]float64) float64 {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		if len(p) < 2 {
			continue
		}
		minX = math.Min(minX, p[0])
		maxX = math.Max(maxX, p[0])
		minY = math.Min(minY, p[1])
		maxY = math.Max(maxY, p[1])
	}
	width := maxX - minX
	if width <= 0 {
		return 0
	}
	return (maxY - minY) / width
}

// centroid returns the mean point of a landmark group.
func centroid(points [][]float64) (x, y float64) {
	n := 0
	for _, p := range points {
		if len(p) < 2 {
			continue
		}
		x += p[0]
		y += p[1]
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return x / float64(n), y / float64(n)
}
