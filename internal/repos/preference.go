package repos

import (
  "context"
  "errors"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/mangamuse/mangamuse-backend/internal/logger"
  "github.com/mangamuse/mangamuse-backend/internal/types"
)

type PreferenceRepo interface {
  // GetByUserID returns (nil, nil) when the user has no preference row yet.
  GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserPreference, error)
}

type preferenceRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewPreferenceRepo(db *gorm.DB, baseLog *logger.Logger) PreferenceRepo {
  repoLog := baseLog.With("repo", "PreferenceRepo")
  return &preferenceRepo{db: db, log: repoLog}
}

func (r *preferenceRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserPreference, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var result types.UserPreference
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
