package faceauth

import (
	"context"

	"github.com/fasinfasi/Face-Lock-System/internal/extractor"
)

// stubExtractor returns canned faces or a canned error.
type stubExtractor struct {
	faces []extractor.Face
	err   error
	calls int
}

func (s *stubExtractor) ExtractFaces(ctx context.Context, image []byte) ([]extractor.Face, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.faces, nil
}

// faceWith wraps an embedding in a detection with no landmarks, which
// passes the quality gate.
func faceWith(embedding []float32) extractor.Face {
	return extractor.Face{
		Dim:       len(embedding),
		Embedding: embedding,
		BBox:      []float64{10, 10, 110, 110},
		DetScore:  0.99,
	}
}

// openEye is an eye contour with healthy vertical extent.
func openEye(cx, cy float64) [][]float64 {
	return [][]float64{
		{cx - 2, cy}, {cx + 2, cy}, {cx, cy - 1}, {cx, cy + 1},
	}
}

// closedEye is an eye contour collapsed almost flat.
func closedEye(cx, cy float64) [][]float64 {
	return [][]float64{
		{cx - 2, cy}, {cx + 2, cy}, {cx, cy - 0.1}, {cx, cy + 0.1},
	}
}
