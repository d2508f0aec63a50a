package repos

import (
  "context"
  "encoding/json"
  "errors"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"

  "github.com/mangamuse/mangamuse-backend/internal/logger"
  "github.com/mangamuse/mangamuse-backend/internal/types"
)

type RecommendationRepo interface {
  // Upsert replaces the user's record in full. One row per user: an existing
  // row is updated in place, never appended to. last_updated is set to now
  // and next_update to now + ttl on every write.
  Upsert(ctx context.Context, tx *gorm.DB, userID uuid.UUID, recommendations []types.Recommendation, profile types.UserProfile, ttl time.Duration) (*types.RecommendationRecord, error)
  // GetByUserID returns (nil, nil) when the user has no record yet.
  GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.RecommendationRecord, error)
  // ListStale returns every record whose next_update is at or before now.
  ListStale(ctx context.Context, tx *gorm.DB, now time.Time) ([]*types.RecommendationRecord, error)
}

type recommendationRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewRecommendationRepo(db *gorm.DB, baseLog *logger.Logger) RecommendationRepo {
  repoLog := baseLog.With("repo", "RecommendationRepo")
  return &recommendationRepo{db: db, log: repoLog}
}

func (r *recommendationRepo) Upsert(ctx context.Context, tx *gorm.DB, userID uuid.UUID, recommendations []types.Recommendation, profile types.UserProfile, ttl time.Duration) (*types.RecommendationRecord, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if recommendations == nil {
    recommendations = []types.Recommendation{}
  }
  recsJSON, err := json.Marshal(recommendations)
  if err != nil {
    return nil, err
  }
  profileJSON, err := json.Marshal(profile)
  if err != nil {
    return nil, err
  }

  now := time.Now().UTC()
  record := &types.RecommendationRecord{
    UserID:          userID,
    Recommendations: recsJSON,
    Profile:         profileJSON,
    LastUpdated:     now,
    NextUpdate:      now.Add(ttl),
  }

  if err := transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns: []clause.Column{{Name: "user_id"}},
      DoUpdates: clause.AssignmentColumns([]string{
        "recommendations", "profile", "last_updated", "next_update", "updated_at",
      }),
    }).
    Create(record).Error; err != nil {
    return nil, err
  }

  // the conflict path keeps the existing row id, not the one generated
  // above; hand back the row as persisted
  var stored types.RecommendationRecord
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    First(&stored).Error; err != nil {
    return nil, err
  }
  return &stored, nil
}

func (r *recommendationRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.RecommendationRecord, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var result types.RecommendationRecord
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    First(&result).Error; err != nil {
    if errors.Is(err, gorm.ErrRecordNotFound) {
      return nil, nil
    }
    return nil, err
  }
  return &result, nil
}

func (r *recommendationRepo) ListStale(ctx context.Context, tx *gorm.DB, now time.Time) ([]*types.RecommendationRecord, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.RecommendationRecord
  if err := transaction.WithContext(ctx).
    Where("next_update <= ?", now).
    Order("next_update ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
