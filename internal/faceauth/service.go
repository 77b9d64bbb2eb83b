// Package faceauth implements the matching decision core: the similarity
// policy, the enrollment manager and the verification engine. Embedding
// extraction and persistence are injected collaborators.
package faceauth

import (
	"context"

	"github.com/fasinfasi/Face-Lock-System/internal/database"
	"github.com/fasinfasi/Face-Lock-System/internal/extractor"
	"github.com/fasinfasi/Face-Lock-System/internal/metrics"
)

// Extractor produces face embeddings from an encoded image. Zero faces is a
// valid result; the service owns the zero/multi-face policy.
type Extractor interface {
	ExtractFaces(ctx context.Context, image []byte) ([]extractor.Face, error)
}

// Service is the enrollment and verification engine. It holds no per-call
// state, so one instance is shared across concurrent requests.
type Service struct {
	store     database.UserStore
	extractor Extractor
	policy    Policy
	metrics   *metrics.Metrics // optional, may be nil

	// strictQuality enables the landmark geometry gate at enrollment.
	strictQuality bool
}

// NewService creates the decision core. The metrics handle may be nil.
func NewService(store database.UserStore, ex Extractor, policy Policy, m *metrics.Metrics, strictQuality bool) *Service {
	return &Service{
		store:         store,
		extractor:     ex,
		policy:        policy,
		metrics:       m,
		strictQuality: strictQuality,
	}
}

// Policy returns the active matching policy.
func (s *Service) Policy() Policy {
	return s.policy
}

// DetectFaces runs extraction only, with no store access and no threshold
// decisions. The camera preview endpoint uses it for framing feedback.
func (s *Service) DetectFaces(ctx context.Context, image []byte) ([]extractor.Face, error) {
	return s.extractFaces(ctx, image)
}

// extractFaces calls the extractor and normalizes transport failures into
// the extractor_error kind so handlers never see raw HTTP errors.
func (s *Service) extractFaces(ctx context.Context, image []byte) ([]extractor.Face, error) {
	faces, err := s.extractor.ExtractFaces(ctx, image)
	if err != nil {
		return nil, &Error{Kind: KindExtractor, Message: "face extraction failed", Err: err}
	}
	return faces, nil
}
