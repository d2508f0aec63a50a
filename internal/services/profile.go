package services

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/mangamuse/mangamuse-backend/internal/logger"
  "github.com/mangamuse/mangamuse-backend/internal/repos"
  "github.com/mangamuse/mangamuse-backend/internal/types"
)

// historyWindow caps how far back into the reading list profile building
// looks. Older entries stop describing current taste.
const historyWindow = 50

type ProfileService interface {
  BuildProfile(ctx context.Context, userID uuid.UUID) (types.UserProfile, error)
}

type profileService struct {
  db          *gorm.DB
  log         *logger.Logger
  historyRepo repos.ReadingHistoryRepo
  favRepo     repos.FavoriteRepo
  prefRepo    repos.PreferenceRepo
}

func NewProfileService(db *gorm.DB, baseLog *logger.Logger, historyRepo repos.ReadingHistoryRepo, favRepo repos.FavoriteRepo, prefRepo repos.PreferenceRepo) ProfileService {
  return &profileService{
    db:          db,
    log:         baseLog.With("service", "ProfileService"),
    historyRepo: historyRepo,
    favRepo:     favRepo,
    prefRepo:    prefRepo,
  }
}

// BuildProfile tallies genre occurrences across recent reads and favorites,
// keeps any genre seen more than once, unions in the declared favorite
// genres and subtracts the declared exclusions. Empty or missing signals
// produce an empty-genre profile, which is valid downstream input. Source
// read failures are logged and treated as empty sources so one broken
// collaborator never blocks a generation run.
func (s *profileService) BuildProfile(ctx context.Context, userID uuid.UUID) (types.UserProfile, error) {
  recentGenres, err := s.historyRepo.ListRecentGenres(ctx, s.db, userID, historyWindow)
  if err != nil {
    s.log.Warn("Reading history unavailable, building profile without it", "user_id", userID, "error", err)
    recentGenres = nil
  }

  favoriteGenres, err := s.favRepo.ListFavoriteGenres(ctx, s.db, userID)
  if err != nil {
    s.log.Warn("Favorites unavailable, building profile without them", "user_id", userID, "error", err)
    favoriteGenres = nil
  }

  counts := map[string]int{}
  for _, genre := range append(append([]string{}, recentGenres...), favoriteGenres...) {
    if genre == "" {
      continue
    }
    counts[genre]++
  }

  seen := map[string]bool{}
  var genres []string
  // keep tally order stable: recent reads first, then favorites
  for _, genre := range append(append([]string{}, recentGenres...), favoriteGenres...) {
    if counts[genre] > 1 && !seen[genre] {
      seen[genre] = true
      genres = append(genres, genre)
    }
  }

  var declaredFavorites, excluded []string
  pref, err := s.prefRepo.GetByUserID(ctx, s.db, userID)
  if err != nil {
    s.log.Warn("Preferences unavailable, building profile without them", "user_id", userID, "error", err)
  } else if pref != nil {
    declaredFavorites = types.GenreList(pref.FavoriteGenres)
    excluded = types.GenreList(pref.ExcludeGenres)
  }

  for _, genre := range declaredFavorites {
    if genre != "" && !seen[genre] {
      seen[genre] = true
      genres = append(genres, genre)
    }
  }

  avoid := map[string]bool{}
  var avoidList []string
  for _, genre := range excluded {
    if genre != "" && !avoid[genre] {
      avoid[genre] = true
      avoidList = append(avoidList, genre)
    }
  }
  kept := genres[:0]
  for _, genre := range genres {
    if !avoid[genre] {
      kept = append(kept, genre)
    }
  }

  profile := types.UserProfile{
    Genres:      append([]string{}, kept...),
    AvoidGenres: append([]string{}, avoidList...),
    Themes:      []string{},
    Tropes:      []string{},
  }
  s.log.Debug("Built user profile", "user_id", userID, "genres", len(profile.Genres), "avoid_genres", len(profile.AvoidGenres))
  return profile, nil
}
