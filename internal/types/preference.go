package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"
)

// UserPreference holds the genres a user declared during onboarding.
// FavoriteGenres and ExcludeGenres are kept disjoint at the point of
// toggling: adding a genre to one side removes it from the other.
type UserPreference struct {
  ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
  User           *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  FavoriteGenres datatypes.JSON `gorm:"type:jsonb;column:favorite_genres" json:"favorite_genres"`
  ExcludeGenres  datatypes.JSON `gorm:"type:jsonb;column:exclude_genres" json:"exclude_genres"`
  Onboarded      bool           `gorm:"column:onboarded;not null;default:false" json:"onboarded"`
  CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserPreference) TableName() string {
  return "user_preference"
}

func (p *UserPreference) BeforeCreate(tx *gorm.DB) error {
  if p.ID == uuid.Nil {
    p.ID = uuid.New()
  }
  return nil
}
