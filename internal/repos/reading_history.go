package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/mangamuse/mangamuse-backend/internal/logger"
  "github.com/mangamuse/mangamuse-backend/internal/types"
)

type ReadingHistoryRepo interface {
  // ListMangaIDs returns every manga on the user's reading list, any status.
  ListMangaIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error)
  // ListRecentGenres returns the genre tags of the user's most recently
  // touched entries, most-recent-first, capped at limit entries.
  ListRecentGenres(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]string, error)
}

type readingHistoryRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewReadingHistoryRepo(db *gorm.DB, baseLog *logger.Logger) ReadingHistoryRepo {
  repoLog := baseLog.With("repo", "ReadingHistoryRepo")
  return &readingHistoryRepo{db: db, log: repoLog}
}

func (r *readingHistoryRepo) ListMangaIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var ids []uuid.UUID
  if err := transaction.WithContext(ctx).
    Model(&types.ReadingHistoryEntry{}).
    Where("user_id = ?", userID).
    Pluck("manga_id", &ids).Error; err != nil {
    return nil, err
  }
  return ids, nil
}

func (r *readingHistoryRepo) ListRecentGenres(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]string, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var entries []*types.ReadingHistoryEntry
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("updated_at DESC").
    Limit(limit).
    Preload("Manga").
    Find(&entries).Error; err != nil {
    return nil, err
  }

  var genres []string
  for _, entry := range entries {
    if entry.Manga == nil {
      continue
    }
    genres = append(genres, types.GenreList(entry.Manga.Genres)...)
  }
  return genres, nil
}
