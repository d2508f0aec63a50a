package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
)

type ReadingHistoryEntry struct {
  ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_user_manga_history,unique" json:"user_id"`
  User      *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  MangaID   uuid.UUID `gorm:"type:uuid;not null;index:idx_user_manga_history,unique" json:"manga_id"`
  Manga     *Manga    `gorm:"constraint:OnDelete:CASCADE;foreignKey:MangaID;references:ID" json:"manga,omitempty"`
  Status    string    `gorm:"column:status;not null;default:'reading'" json:"status"` // reading | completed | dropped | plan_to_read
  CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt time.Time `gorm:"not null;default:now();index" json:"updated_at"`
}

func (ReadingHistoryEntry) TableName() string {
  return "reading_history_entry"
}

func (e *ReadingHistoryEntry) BeforeCreate(tx *gorm.DB) error {
  if e.ID == uuid.Nil {
    e.ID = uuid.New()
  }
  return nil
}

type Favorite struct {
  ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_user_manga_favorite,unique" json:"user_id"`
  User      *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  MangaID   uuid.UUID `gorm:"type:uuid;not null;index:idx_user_manga_favorite,unique" json:"manga_id"`
  Manga     *Manga    `gorm:"constraint:OnDelete:CASCADE;foreignKey:MangaID;references:ID" json:"manga,omitempty"`
  CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Favorite) TableName() string {
  return "favorite"
}

func (f *Favorite) BeforeCreate(tx *gorm.DB) error {
  if f.ID == uuid.Nil {
    f.ID = uuid.New()
  }
  return nil
}
