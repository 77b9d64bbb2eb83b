package handlers

import (
	"log"
	"net/http"

	"github.com/fasinfasi/Face-Lock-System/internal/database"
	"github.com/fasinfasi/Face-Lock-System/internal/faceauth"
)

// StatsHandler reports service statistics.
type StatsHandler struct {
	reader database.UserReader
	policy faceauth.Policy
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(reader database.UserReader, policy faceauth.Policy) *StatsHandler {
	return &StatsHandler{reader: reader, policy: policy}
}

// StatsResponse summarizes the enrolled population and the active policy.
// Thresholds are operational tuning values, not secrets; the endpoint is
// behind authentication regardless.
type StatsResponse struct {
	UserCount       int     `json:"user_count"`
	EmbeddingCount  int     `json:"embedding_count"`
	VerifyThreshold float64 `json:"verify_threshold"`
	UpdateThreshold float64 `json:"update_threshold"`
	DedupThreshold  float64 `json:"dedup_threshold"`
	MaxEmbeddings   int     `json:"max_embeddings"`
}

// Get returns the current statistics.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	users, err := h.reader.ListUsers(r.Context())
	if err != nil {
		log.Printf("failed to list users for stats: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	embeddings := 0
	for i := range users {
		embeddings += len(users[i].Embeddings)
	}

	respondJSON(w, http.StatusOK, StatsResponse{
		UserCount:       len(users),
		EmbeddingCount:  embeddings,
		VerifyThreshold: h.policy.VerifyThreshold,
		UpdateThreshold: h.policy.UpdateThreshold,
		DedupThreshold:  h.policy.DedupThreshold,
		MaxEmbeddings:   h.policy.MaxEmbeddings,
	})
}
