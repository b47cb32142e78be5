// Package profile implements the adaptive keyword engine: scoring jobs
// against a user's keyword set, ranking job batches, learning from
// like/dislike feedback, and bounding profile size.
package profile

import (
	"context"
	"log/slog"

	"jobbot/internal/model"
	"jobbot/internal/storage"
)

// Suggester proposes keyword adjustments for a job/reaction pair.
// Implementations return an empty slice on any failure.
type Suggester interface {
	Suggest(ctx context.Context, job model.JobPosting, current []model.Keyword, action model.InteractionAction) []model.Suggestion
}

// Params are the learning tunables.
type Params struct {
	TopK              int
	MaxManualKeywords int
	Decay             float64
	LikeBoost         float64
	DislikePenalty    float64 // negative number
	NegativePromoteAt float64 // hard-reject threshold, negative number
	NewPositiveQuota  int
	NewNegativeQuota  int
	ExcludeRecentDays int
}

// Service wires the keyword engine to its collaborators.
type Service struct {
	store   storage.Storage
	suggest Suggester
	params  Params
	log     *slog.Logger
}

// New creates a profile Service.
func New(store storage.Storage, suggest Suggester, params Params, log *slog.Logger) *Service {
	return &Service{
		store:   store,
		suggest: suggest,
		params:  params,
		log:     log,
	}
}

// Params returns the service's learning tunables.
func (s *Service) Params() Params {
	return s.params
}
