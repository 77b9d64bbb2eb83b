package faceauth

import (
	"context"
	"fmt"
	"time"

	"github.com/fasinfasi/Face-Lock-System/internal/database"
)

// EnrollResult reports a successful enrollment.
type EnrollResult struct {
	Identity     string
	RegisteredAt time.Time
}

// Enroll registers a new user from a single-face image.
//
// Rejection paths perform zero store writes; success performs exactly one
// atomic write (user record plus its first embedding). Identity uniqueness
// is enforced by the store at insert time, so two concurrent enrollments of
// the same name cannot both succeed. The face-dedup scan against concurrent
// enrollments of a *similar* face is best-effort: there is no global lock
// over the store, and a near-simultaneous pair of enrollments of the same
// physical face can both pass the scan. That window is accepted and small.
func (s *Service) Enroll(ctx context.Context, identity string, image []byte) (*EnrollResult, error) {
	result, err := s.enroll(ctx, identity, image)
	s.recordEnroll(err)
	return result, err
}

func (s *Service) enroll(ctx context.Context, identity string, image []byte) (*EnrollResult, error) {
	identity = NormalizeIdentity(identity)
	if identity == "" {
		return nil, newError(KindValidation, "identity must not be empty")
	}

	// Fast-path rejection; the insert below still closes the race.
	existing, err := s.store.GetUser(ctx, identity)
	if err != nil {
		return nil, &Error{Kind: KindStore, Message: "failed to check identity", Err: err}
	}
	if existing != nil {
		return nil, newError(KindDuplicateIdentity, fmt.Sprintf("user %q already exists", identity))
	}

	faces, err := s.extractFaces(ctx, image)
	if err != nil {
		return nil, err
	}
	switch {
	case len(faces) == 0:
		return nil, newError(KindNoFace, "no face detected")
	case len(faces) > 1:
		// Ambiguous face selection at account creation is a security risk.
		return nil, newError(KindMultipleFaces, "multiple faces detected, provide an image with a single face")
	}
	face := faces[0]

	if s.strictQuality {
		if ok, reason := CheckFaceQuality(face); !ok {
			return nil, newError(KindLowQualityFace, reason)
		}
	}

	if conflict, err := s.findEnrolledFace(ctx, face.Embedding); err != nil {
		return nil, err
	} else if conflict != "" {
		return nil, &Error{
			Kind:                KindFaceAlreadyRegistered,
			Message:             fmt.Sprintf("this face is already registered as %q", conflict),
			ConflictingIdentity: conflict,
		}
	}

	record := &database.UserRecord{
		Identity:     identity,
		Embeddings:   [][]float32{face.Embedding},
		RegisteredAt: time.Now(),
	}
	if err := s.store.CreateUser(ctx, record); err != nil {
		if err == database.ErrIdentityExists {
			return nil, newError(KindDuplicateIdentity, fmt.Sprintf("user %q already exists", identity))
		}
		return nil, &Error{Kind: KindStore, Message: "failed to persist user", Err: err}
	}

	return &EnrollResult{Identity: identity, RegisteredAt: record.RegisteredAt}, nil
}

// findEnrolledFace scans every stored embedding for one whose similarity to
// the candidate clears the dedup threshold, returning the owning identity.
// A full scan: the decision is score-based and needs the global picture.
func (s *Service) findEnrolledFace(ctx context.Context, embedding []float32) (string, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return "", &Error{Kind: KindStore, Message: "failed to scan enrolled faces", Err: err}
	}

	for i := range users {
		for _, stored := range users[i].Embeddings {
			score, err := CosineSimilarity(stored, embedding)
			if err != nil {
				return "", &Error{Kind: KindValidation, Message: "stored embedding incompatible with extractor output", Err: err}
			}
			if score >= s.policy.DedupThreshold {
				return users[i].Identity, nil
			}
		}
	}
	return "", nil
}

func (s *Service) recordEnroll(err error) {
	if s.metrics == nil {
		return
	}
	if err == nil {
		s.metrics.ObserveEnrollment("success")
		return
	}
	kind := KindOf(err)
	if kind == "" {
		kind = KindStore
	}
	s.metrics.ObserveEnrollment(string(kind))
}
