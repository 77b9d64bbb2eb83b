package faceauth

import (
	"context"
	"log"
)

// MatchResult is the outcome of one verification attempt. It is never
// persisted. A rejected match carries no identity and no score detail; the
// API layer surfaces only a generic message so callers cannot probe how
// close a wrong face came (similarity-oracle hardening).
type MatchResult struct {
	Success    bool
	Identity   string
	Score      float64
	Confidence float64
	// Updated reports whether the query embedding was appended to the
	// matched user's reference set.
	Updated bool
}

// Verify matches a query image against every enrolled user and applies the
// acceptance threshold.
//
// The scan is a full linear pass over users x stored embeddings x query
// embeddings with no early exit: the decision needs the global best score,
// not the first embedding past the threshold. Each call is stateless; the
// only write is the optional per-identity append below.
func (s *Service) Verify(ctx context.Context, image []byte) (*MatchResult, error) {
	result, err := s.verify(ctx, image)
	s.recordVerify(result, err)
	return result, err
}

func (s *Service) verify(ctx context.Context, image []byte) (*MatchResult, error) {
	faces, err := s.extractFaces(ctx, image)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, newError(KindNoFace, "no face detected")
	}

	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, &Error{Kind: KindStore, Message: "failed to count users", Err: err}
	}
	if count == 0 {
		return nil, newError(KindNoRegisteredUsers, "No registered users found")
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, &Error{Kind: KindStore, Message: "failed to scan users", Err: err}
	}

	best := bestMatch{score: -1}
	for ui := range users {
		for _, stored := range users[ui].Embeddings {
			for fi := range faces {
				score, err := CosineSimilarity(stored, faces[fi].Embedding)
				if err != nil {
					return nil, &Error{Kind: KindValidation, Message: "stored embedding incompatible with extractor output", Err: err}
				}
				if score > best.score {
					best = bestMatch{
						identity: users[ui].Identity,
						score:    score,
						query:    faces[fi].Embedding,
					}
				}
			}
		}
	}

	// Inclusive boundary: a score exactly at the threshold passes.
	if best.score < s.policy.VerifyThreshold {
		return &MatchResult{Success: false}, nil
	}

	result := &MatchResult{
		Success:    true,
		Identity:   best.identity,
		Score:      best.score,
		Confidence: Confidence(best.score),
	}

	// Incremental enrollment: a match that is accepted but sits below the
	// update threshold captures legitimate variation (lighting, angle,
	// aging) worth adding to the reference set. An exact-repeat image
	// scores above the band and never grows the sequence.
	if best.score < s.policy.UpdateThreshold {
		if err := s.store.AppendEmbedding(ctx, best.identity, best.query, s.policy.MaxEmbeddings); err != nil {
			// The login itself succeeded; a failed reference-set update
			// must not turn it into a failure.
			log.Printf("warning: failed to append embedding for %q: %v", best.identity, err)
			return result, nil
		}
		result.Updated = true
		if s.metrics != nil {
			s.metrics.ObserveEmbeddingAppend()
		}
	}

	return result, nil
}

type bestMatch struct {
	identity string
	score    float64
	query    []float32
}

func (s *Service) recordVerify(result *MatchResult, err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case err != nil:
		kind := KindOf(err)
		if kind == "" {
			kind = KindStore
		}
		s.metrics.ObserveVerification(string(kind))
	case result.Success:
		s.metrics.ObserveVerification("accepted")
	default:
		s.metrics.ObserveVerification("rejected")
	}
}
