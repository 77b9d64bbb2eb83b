package faceauth

import "fmt"

// Policy holds the similarity thresholds that drive every match decision.
//
// The three thresholds form a ladder on the cosine similarity scale:
//
//	verify  <= s            accept a login
//	verify  <= s < update   accepted, but novel enough to append the query
//	                        embedding to the user's reference set
//	dedup   <= s            at enrollment: this face already has an account
//
// DedupThreshold is deliberately stricter than VerifyThreshold: refusing a
// second account needs far more certainty than accepting a login.
type Policy struct {
	VerifyThreshold float64
	UpdateThreshold float64
	DedupThreshold  float64

	// MaxEmbeddings caps the per-user reference set. The incremental-update
	// path trims the oldest embeddings beyond the cap so neither storage nor
	// scan cost grows without bound.
	MaxEmbeddings int
}

// DefaultPolicy returns the shipped thresholds. 0.60 is the verification
// bound the extractor vendors recommend for 128-d encodings; 0.92 only
// triggers on near-identical faces.
func DefaultPolicy() Policy {
	return Policy{
		VerifyThreshold: 0.60,
		UpdateThreshold: 0.75,
		DedupThreshold:  0.92,
		MaxEmbeddings:   16,
	}
}

// Validate checks the threshold ladder ordering.
func (p Policy) Validate() error {
	if p.VerifyThreshold <= 0 || p.VerifyThreshold > 1 {
		return fmt.Errorf("verify threshold %.3f out of range (0, 1]", p.VerifyThreshold)
	}
	if p.UpdateThreshold < p.VerifyThreshold {
		return fmt.Errorf("update threshold %.3f below verify threshold %.3f", p.UpdateThreshold, p.VerifyThreshold)
	}
	if p.DedupThreshold < p.UpdateThreshold || p.DedupThreshold > 1 {
		return fmt.Errorf("dedup threshold %.3f must be in [update, 1]", p.DedupThreshold)
	}
	if p.MaxEmbeddings < 1 {
		return fmt.Errorf("max embeddings must be at least 1, got %d", p.MaxEmbeddings)
	}
	return nil
}
