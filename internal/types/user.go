package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
)

// User is the minimal identity row this service keys its per-user tables on.
// Registration, sessions and profile editing live in the identity service.
type User struct {
  ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  Email       string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
  DisplayName string    `gorm:"column:display_name" json:"display_name"`
  CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string {
  return "user"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
  if u.ID == uuid.Nil {
    u.ID = uuid.New()
  }
  return nil
}
