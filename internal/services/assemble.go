package services

import (
  "math"
  "strings"
  "time"

  "github.com/mangamuse/mangamuse-backend/internal/types"
)

// placeholderCover is served when a candidate's cover does not look like an
// image the frontend can render.
const placeholderCover = "/assets/cover-placeholder.png"

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".avif"}

// assembleRecommendations cross-references the model's picks against the
// candidate set that was actually sent to inference. The model must not be
// trusted to only cite what it was given: picks referencing unknown ids are
// silently dropped. Order is preserved from the model's output. An empty
// result is reported as NoValidRecommendationsError so the caller degrades
// to the fallback.
func assembleRecommendations(picks []modelPick, candidates []types.CandidateItem, now time.Time) ([]types.Recommendation, error) {
  byID := make(map[string]types.CandidateItem, len(candidates))
  for _, candidate := range candidates {
    byID[candidate.ID.String()] = candidate
  }

  out := make([]types.Recommendation, 0, len(picks))
  for _, pick := range picks {
    candidate, ok := byID[pick.ID]
    if !ok {
      continue
    }
    out = append(out, types.Recommendation{
      MangaID:         candidate.ID,
      Title:           candidate.Title,
      CoverImage:      normalizeCoverImage(candidate.CoverURL),
      Reason:          pick.Reason,
      MatchPercentage: clampMatch(pick.Match),
      Genres:          candidate.Genres,
      GeneratedAt:     now,
    })
  }
  if len(out) == 0 {
    return nil, &NoValidRecommendationsError{Parsed: len(picks)}
  }
  return out, nil
}

// clampMatch forces any out-of-range model output into [1,100] instead of
// rejecting the entry.
func clampMatch(v float64) int {
  n := int(math.Round(v))
  if n < 1 {
    return 1
  }
  if n > 100 {
    return 100
  }
  return n
}

// normalizeCoverImage produces an absolute or root-relative path, or the
// placeholder when the value does not look like an image URL at all.
func normalizeCoverImage(raw string) string {
  s := strings.TrimSpace(raw)
  if s == "" {
    return placeholderCover
  }
  if s == placeholderCover {
    return s
  }
  if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") && !strings.HasPrefix(s, "/") {
    s = "/" + s
  }
  if !looksLikeImage(s) {
    return placeholderCover
  }
  return s
}

func looksLikeImage(s string) bool {
  path := s
  if i := strings.IndexAny(path, "?#"); i >= 0 {
    path = path[:i]
  }
  lower := strings.ToLower(path)
  for _, ext := range imageExtensions {
    if strings.HasSuffix(lower, ext) {
      return true
    }
  }
  return false
}
