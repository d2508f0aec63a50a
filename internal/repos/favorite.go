package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/mangamuse/mangamuse-backend/internal/logger"
  "github.com/mangamuse/mangamuse-backend/internal/types"
)

type FavoriteRepo interface {
  ListFavoriteGenres(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]string, error)
}

type favoriteRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewFavoriteRepo(db *gorm.DB, baseLog *logger.Logger) FavoriteRepo {
  repoLog := baseLog.With("repo", "FavoriteRepo")
  return &favoriteRepo{db: db, log: repoLog}
}

func (r *favoriteRepo) ListFavoriteGenres(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]string, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var favorites []*types.Favorite
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("created_at DESC").
    Preload("Manga").
    Find(&favorites).Error; err != nil {
    return nil, err
  }

  var genres []string
  for _, favorite := range favorites {
    if favorite.Manga == nil {
      continue
    }
    genres = append(genres, types.GenreList(favorite.Manga.Genres)...)
  }
  return genres, nil
}
