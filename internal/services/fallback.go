package services

import (
  "context"
  "time"

  "github.com/google/uuid"

  "github.com/mangamuse/mangamuse-backend/internal/logger"
  "github.com/mangamuse/mangamuse-backend/internal/types"
)

// FallbackReason is the conventionalized reason text the UI keys on to tell
// a popularity fallback apart from a real AI-backed list.
const FallbackReason = "Recommended based on popularity (emergency fallback)"

// fallbackTopMatch and fallbackMatchStep yield the 70,65,60,55,50 sequence.
const (
  fallbackTopMatch  = 70
  fallbackMatchStep = 5
)

type FallbackProvider interface {
  // Provide synthesizes a degraded-but-valid list from raw popularity.
  // Never calls inference. Its own fetch error propagates to the caller.
  Provide(ctx context.Context, userID uuid.UUID) ([]types.Recommendation, error)
}

type fallbackProvider struct {
  log        *logger.Logger
  candidates CandidateService
}

func NewFallbackProvider(baseLog *logger.Logger, candidates CandidateService) FallbackProvider {
  return &fallbackProvider{
    log:        baseLog.With("service", "FallbackProvider"),
    candidates: candidates,
  }
}

func (p *fallbackProvider) Provide(ctx context.Context, userID uuid.UUID) ([]types.Recommendation, error) {
  top, err := p.candidates.TopFallback(ctx, userID)
  if err != nil {
    return nil, err
  }

  now := time.Now().UTC()
  out := make([]types.Recommendation, 0, len(top))
  for i, candidate := range top {
    match := fallbackTopMatch - i*fallbackMatchStep
    if match < 1 {
      match = 1
    }
    out = append(out, types.Recommendation{
      MangaID:         candidate.ID,
      Title:           candidate.Title,
      CoverImage:      normalizeCoverImage(candidate.CoverURL),
      Reason:          FallbackReason,
      MatchPercentage: match,
      Genres:          candidate.Genres,
      GeneratedAt:     now,
    })
  }
  p.log.Debug("Fallback recommendations synthesized", "user_id", userID, "count", len(out))
  return out, nil
}
