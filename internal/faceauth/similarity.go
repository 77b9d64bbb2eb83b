package faceauth

import (
	"fmt"
	"math"
)

// The matching policy works on cosine similarity in [-1, 1], higher = more
// alike. All thresholds (verify, update, dedup) are compared with an
// inclusive >= against this value. This is the single numeric convention for
// the whole module; nothing else converts to distances.

// CosineSimilarity computes the cosine similarity between two embeddings.
// Vectors of mismatched or zero length are a programming-contract violation
// and return an error rather than a padded or truncated comparison.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, fmt.Errorf("empty embedding (len %d vs %d)", len(a), len(b))
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimension mismatch: %d vs %d", len(a), len(b))
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("zero-magnitude embedding")
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors.
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return similarity, nil
}

// Confidence maps a similarity score onto [0, 1] for API responses.
// Strictly monotonic, so ordering of candidates is preserved.
func Confidence(similarity float64) float64 {
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return (similarity + 1) / 2
}
