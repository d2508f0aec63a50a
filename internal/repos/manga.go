package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/mangamuse/mangamuse-backend/internal/logger"
  "github.com/mangamuse/mangamuse-backend/internal/types"
)

type MangaRepo interface {
  // ListTopByPopularity returns up to limit manga ordered by popularity
  // descending, skipping everything in excludeIDs.
  ListTopByPopularity(ctx context.Context, tx *gorm.DB, excludeIDs []uuid.UUID, limit int) ([]*types.Manga, error)
}

type mangaRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewMangaRepo(db *gorm.DB, baseLog *logger.Logger) MangaRepo {
  repoLog := baseLog.With("repo", "MangaRepo")
  return &mangaRepo{db: db, log: repoLog}
}

func (r *mangaRepo) ListTopByPopularity(ctx context.Context, tx *gorm.DB, excludeIDs []uuid.UUID, limit int) ([]*types.Manga, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  query := transaction.WithContext(ctx).Model(&types.Manga{})
  if len(excludeIDs) > 0 {
    query = query.Where("id NOT IN ?", excludeIDs)
  }

  var results []*types.Manga
  if err := query.
    Order("popularity DESC").
    Limit(limit).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
