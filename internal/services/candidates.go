package services

import (
  "context"
  "unicode/utf8"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/mangamuse/mangamuse-backend/internal/config"
  "github.com/mangamuse/mangamuse-backend/internal/logger"
  "github.com/mangamuse/mangamuse-backend/internal/repos"
  "github.com/mangamuse/mangamuse-backend/internal/types"
)

type CandidateService interface {
  // SelectCandidates fetches the popularity-ranked working set for one
  // generation run, minus everything already on the user's reading list.
  // Returns ErrEmptyCandidateSet when nothing remains.
  SelectCandidates(ctx context.Context, userID uuid.UUID, profile types.UserProfile) ([]types.CandidateItem, error)
  // TopFallback fetches the fresh top-N query the fallback path uses.
  TopFallback(ctx context.Context, userID uuid.UUID) ([]types.CandidateItem, error)
}

type candidateService struct {
  db          *gorm.DB
  log         *logger.Logger
  cfg         config.RecommenderConfig
  mangaRepo   repos.MangaRepo
  historyRepo repos.ReadingHistoryRepo
}

func NewCandidateService(db *gorm.DB, baseLog *logger.Logger, cfg config.RecommenderConfig, mangaRepo repos.MangaRepo, historyRepo repos.ReadingHistoryRepo) CandidateService {
  return &candidateService{
    db:          db,
    log:         baseLog.With("service", "CandidateService"),
    cfg:         cfg,
    mangaRepo:   mangaRepo,
    historyRepo: historyRepo,
  }
}

func (s *candidateService) SelectCandidates(ctx context.Context, userID uuid.UUID, profile types.UserProfile) ([]types.CandidateItem, error) {
  readIDs, err := s.historyRepo.ListMangaIDs(ctx, s.db, userID)
  if err != nil {
    return nil, err
  }

  rows, err := s.mangaRepo.ListTopByPopularity(ctx, s.db, readIDs, s.cfg.CandidatePoolSize)
  if err != nil {
    return nil, err
  }
  if len(rows) == 0 {
    return nil, ErrEmptyCandidateSet
  }

  candidates := toCandidates(rows, s.cfg.DescriptionBudget)

  // Exclusion is normally only hinted to the model inside the prompt; the
  // hard filter is an opt-in policy.
  if s.cfg.HardFilterAvoidGenres && len(profile.AvoidGenres) > 0 {
    avoid := map[string]bool{}
    for _, genre := range profile.AvoidGenres {
      avoid[genre] = true
    }
    filtered := candidates[:0]
    for _, candidate := range candidates {
      if !hasAnyGenre(candidate.Genres, avoid) {
        filtered = append(filtered, candidate)
      }
    }
    candidates = filtered
    if len(candidates) == 0 {
      return nil, ErrEmptyCandidateSet
    }
  }

  if len(candidates) > s.cfg.CandidatePromptSize {
    candidates = candidates[:s.cfg.CandidatePromptSize]
  }
  return candidates, nil
}

func (s *candidateService) TopFallback(ctx context.Context, userID uuid.UUID) ([]types.CandidateItem, error) {
  readIDs, err := s.historyRepo.ListMangaIDs(ctx, s.db, userID)
  if err != nil {
    return nil, err
  }
  rows, err := s.mangaRepo.ListTopByPopularity(ctx, s.db, readIDs, s.cfg.FallbackSize)
  if err != nil {
    return nil, err
  }
  return toCandidates(rows, s.cfg.DescriptionBudget), nil
}

func toCandidates(rows []*types.Manga, descriptionBudget int) []types.CandidateItem {
  out := make([]types.CandidateItem, 0, len(rows))
  for _, row := range rows {
    out = append(out, types.CandidateItem{
      ID:                 row.ID,
      Title:              row.Title,
      Genres:             types.GenreList(row.Genres),
      DescriptionSnippet: truncateDescription(row.Description, descriptionBudget),
      CoverURL:           row.CoverURL,
      Popularity:         row.Popularity,
    })
  }
  return out
}

// truncateDescription bounds the prompt payload without splitting a rune.
func truncateDescription(s string, budget int) string {
  if budget <= 0 || utf8.RuneCountInString(s) <= budget {
    return s
  }
  runes := []rune(s)
  return string(runes[:budget]) + "…"
}

func hasAnyGenre(genres []string, set map[string]bool) bool {
  for _, genre := range genres {
    if set[genre] {
      return true
    }
  }
  return false
}
