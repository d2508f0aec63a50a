package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"
)

type Manga struct {
  ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  Title       string         `gorm:"not null;column:title;index" json:"title"`
  Author      string         `gorm:"column:author" json:"author"`
  Genres      datatypes.JSON `gorm:"type:jsonb;column:genres" json:"genres"`
  Description string         `gorm:"type:text;column:description" json:"description"`
  CoverURL    string         `gorm:"column:cover_url" json:"cover_url"`
  Status      string         `gorm:"column:status;default:'ongoing'" json:"status"` // ongoing | completed | hiatus
  Popularity  int64          `gorm:"column:popularity;not null;default:0;index" json:"popularity"`
  CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
  DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Manga) TableName() string {
  return "manga"
}

func (m *Manga) BeforeCreate(tx *gorm.DB) error {
  if m.ID == uuid.Nil {
    m.ID = uuid.New()
  }
  return nil
}
