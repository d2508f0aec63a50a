package services

import (
  "context"
  "errors"
  "time"

  "github.com/google/uuid"
  "golang.org/x/sync/singleflight"
  "gorm.io/gorm"

  redisclient "github.com/mangamuse/mangamuse-backend/internal/clients/redis"
  "github.com/mangamuse/mangamuse-backend/internal/config"
  "github.com/mangamuse/mangamuse-backend/internal/logger"
  "github.com/mangamuse/mangamuse-backend/internal/repos"
  "github.com/mangamuse/mangamuse-backend/internal/types"
)

// recommendationsPerUser is the list length every generation run asks the
// model for and the fallback synthesizes.
const recommendationsPerUser = 5

type RecommendationService interface {
  // Get returns the user's stored record through the cache, or (nil, nil)
  // when the user has never had a generation run.
  Get(ctx context.Context, userID uuid.UUID) (*types.RecommendationRecord, error)
  // CheckAndRefresh runs the pipeline when the record is absent or stale,
  // otherwise returns the stored record untouched.
  CheckAndRefresh(ctx context.Context, userID uuid.UUID) (*types.RecommendationRecord, error)
  // Refresh always runs the full pipeline for one user. Inference,
  // extraction and assembly failures degrade to the popularity fallback;
  // ErrEmptyCandidateSet and PersistenceError propagate.
  Refresh(ctx context.Context, userID uuid.UUID) (*types.RecommendationRecord, error)
  // SweepStale refreshes every user whose record has passed next_update,
  // one at a time. A failure for one user is logged and does not abort the
  // remaining sweep.
  SweepStale(ctx context.Context) (int, error)
}

// RecordCache sits in front of the record store. The redis client satisfies
// it, and a nil *redis.RecommendationCache is a working no-op, so the
// pipeline runs unchanged without Redis configured.
type RecordCache interface {
  GetRecord(ctx context.Context, userID uuid.UUID) *types.RecommendationRecord
  SetRecord(ctx context.Context, userID uuid.UUID, record *types.RecommendationRecord)
  InvalidateRecord(ctx context.Context, userID uuid.UUID)
  AcquireGenerationLock(ctx context.Context, userID uuid.UUID) (release func(), acquired bool)
}

type recommendationService struct {
  db       *gorm.DB
  log      *logger.Logger
  cfg      config.RecommenderConfig
  recRepo  repos.RecommendationRepo
  profiles ProfileService
  catalog  CandidateService
  ai       InferenceClient
  fallback FallbackProvider
  cache    RecordCache

  // per-user mutual exclusion: at most one generation run per user at a
  // time, shared by the sweep and the on-demand path
  flight singleflight.Group
}

func NewRecommendationService(
  db *gorm.DB,
  baseLog *logger.Logger,
  cfg config.RecommenderConfig,
  recRepo repos.RecommendationRepo,
  profiles ProfileService,
  catalog CandidateService,
  ai InferenceClient,
  fallback FallbackProvider,
  cache RecordCache,
) RecommendationService {
  if cache == nil {
    cache = (*redisclient.RecommendationCache)(nil)
  }
  return &recommendationService{
    db:       db,
    log:      baseLog.With("service", "RecommendationService"),
    cfg:      cfg,
    recRepo:  recRepo,
    profiles: profiles,
    catalog:  catalog,
    ai:       ai,
    fallback: fallback,
    cache:    cache,
  }
}

func (s *recommendationService) Get(ctx context.Context, userID uuid.UUID) (*types.RecommendationRecord, error) {
  if cached := s.cache.GetRecord(ctx, userID); cached != nil {
    return cached, nil
  }
  record, err := s.recRepo.GetByUserID(ctx, s.db, userID)
  if err != nil {
    return nil, &PersistenceError{Op: "read", Err: err}
  }
  if record != nil {
    s.cache.SetRecord(ctx, userID, record)
  }
  return record, nil
}

func (s *recommendationService) CheckAndRefresh(ctx context.Context, userID uuid.UUID) (*types.RecommendationRecord, error) {
  record, err := s.Get(ctx, userID)
  if err != nil {
    return nil, err
  }
  if record != nil && record.NextUpdate.After(time.Now().UTC()) {
    return record, nil
  }
  return s.Refresh(ctx, userID)
}

func (s *recommendationService) Refresh(ctx context.Context, userID uuid.UUID) (*types.RecommendationRecord, error) {
  result, err, _ := s.flight.Do(userID.String(), func() (interface{}, error) {
    return s.generate(ctx, userID)
  })
  if err != nil {
    return nil, err
  }
  return result.(*types.RecommendationRecord), nil
}

func (s *recommendationService) generate(ctx context.Context, userID uuid.UUID) (*types.RecommendationRecord, error) {
  // Cross-process guard. When another instance holds the lock we return
  // whatever is stored rather than racing a second run for the same user.
  release, acquired := s.cache.AcquireGenerationLock(ctx, userID)
  if !acquired {
    s.log.Debug("Generation already in flight elsewhere, returning stored record", "user_id", userID)
    record, err := s.recRepo.GetByUserID(ctx, s.db, userID)
    if err != nil {
      return nil, &PersistenceError{Op: "read", Err: err}
    }
    return record, nil
  }
  defer release()

  profile, err := s.profiles.BuildProfile(ctx, userID)
  if err != nil {
    // BuildProfile degrades internally; an error here is a programming
    // error, but an empty profile is still valid pipeline input.
    s.log.Warn("Profile build failed, continuing with empty profile", "user_id", userID, "error", err)
    profile = types.UserProfile{Genres: []string{}, AvoidGenres: []string{}, Themes: []string{}, Tropes: []string{}}
  }

  recommendations, genErr := s.generateFromInference(ctx, userID, profile)
  if genErr != nil {
    if !isDegradable(genErr) {
      return nil, genErr
    }
    s.log.Warn("Primary recommendation path failed, degrading to popularity fallback", "user_id", userID, "error", genErr)
    recommendations, err = s.fallback.Provide(ctx, userID)
    if err != nil {
      // even the fallback's own fetch failed: surface, don't swallow
      return nil, err
    }
  }

  record, err := s.recRepo.Upsert(ctx, s.db, userID, recommendations, profile, s.cfg.RecordTTL())
  if err != nil {
    return nil, &PersistenceError{Op: "upsert", Err: err}
  }
  s.cache.InvalidateRecord(ctx, userID)

  s.log.Info("Recommendations stored", "user_id", userID, "count", len(recommendations), "fallback", genErr != nil, "next_update", record.NextUpdate)
  return record, nil
}

func (s *recommendationService) generateFromInference(ctx context.Context, userID uuid.UUID, profile types.UserProfile) ([]types.Recommendation, error) {
  candidates, err := s.catalog.SelectCandidates(ctx, userID, profile)
  if err != nil {
    return nil, err
  }

  raw, err := s.ai.RankCandidates(ctx, profile, candidates, recommendationsPerUser)
  if err != nil {
    return nil, err
  }
  if err := ctx.Err(); err != nil {
    // cancelled mid-flight: skip the parsing work, the result would be
    // discarded anyway
    return nil, err
  }

  picks, err := extractRecommendationArray(raw)
  if err != nil {
    return nil, err
  }

  recommendations, err := assembleRecommendations(picks, candidates, time.Now().UTC())
  if err != nil {
    return nil, err
  }
  if len(recommendations) > recommendationsPerUser {
    recommendations = recommendations[:recommendationsPerUser]
  }
  return recommendations, nil
}

func (s *recommendationService) SweepStale(ctx context.Context) (int, error) {
  stale, err := s.recRepo.ListStale(ctx, s.db, time.Now().UTC())
  if err != nil {
    return 0, &PersistenceError{Op: "list stale", Err: err}
  }
  if len(stale) == 0 {
    return 0, nil
  }
  s.log.Info("Sweeping stale recommendation records", "count", len(stale))

  refreshed := 0
  for _, record := range stale {
    if err := ctx.Err(); err != nil {
      return refreshed, err
    }
    if _, err := s.Refresh(ctx, record.UserID); err != nil {
      if errors.Is(err, ErrEmptyCandidateSet) {
        s.log.Debug("User has no recommendable candidates, skipping", "user_id", record.UserID)
      } else {
        s.log.Error("Refresh failed during sweep, continuing", "user_id", record.UserID, "error", err)
      }
      continue
    }
    refreshed++
  }
  return refreshed, nil
}
