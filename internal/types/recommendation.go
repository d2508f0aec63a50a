package types

import (
  "encoding/json"
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"
)

// UserProfile is the behavioral snapshot a generation run was built from.
// Genres and AvoidGenres never overlap. Themes, Tropes, Tone and Pace are
// placeholders for future signal types and are always empty today.
type UserProfile struct {
  Genres      []string `json:"genres"`
  AvoidGenres []string `json:"avoidGenres"`
  Themes      []string `json:"themes"`
  Tropes      []string `json:"tropes"`
  Tone        string   `json:"tone"`
  Pace        string   `json:"pace"`
}

// CandidateItem is a catalog row reduced to what one generation run needs.
type CandidateItem struct {
  ID                 uuid.UUID `json:"id"`
  Title              string    `json:"title"`
  Genres             []string  `json:"genres"`
  DescriptionSnippet string    `json:"description"`
  CoverURL           string    `json:"-"`
  Popularity         int64     `json:"-"`
}

type Recommendation struct {
  MangaID         uuid.UUID `json:"mangaId"`
  Title           string    `json:"title"`
  CoverImage      string    `json:"coverImage"`
  Reason          string    `json:"reason"`
  MatchPercentage int       `json:"matchPercentage"`
  Genres          []string  `json:"genres"`
  GeneratedAt     time.Time `json:"generatedAt"`
}

// RecommendationRecord is the single per-user row the pipeline writes.
// Mutated only by a full regeneration, never partially patched.
type RecommendationRecord struct {
  ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID          uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
  User            *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  Recommendations datatypes.JSON `gorm:"type:jsonb;column:recommendations" json:"recommendations"`
  Profile         datatypes.JSON `gorm:"type:jsonb;column:profile" json:"profile"`
  LastUpdated     time.Time      `gorm:"column:last_updated;not null;default:now()" json:"last_updated"`
  NextUpdate      time.Time      `gorm:"column:next_update;not null;index" json:"next_update"`
  CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (RecommendationRecord) TableName() string {
  return "recommendation_record"
}

func (r *RecommendationRecord) BeforeCreate(tx *gorm.DB) error {
  if r.ID == uuid.Nil {
    r.ID = uuid.New()
  }
  return nil
}

func (r *RecommendationRecord) DecodeRecommendations() ([]Recommendation, error) {
  if len(r.Recommendations) == 0 {
    return []Recommendation{}, nil
  }
  var out []Recommendation
  if err := json.Unmarshal(r.Recommendations, &out); err != nil {
    return nil, err
  }
  return out, nil
}

func (r *RecommendationRecord) DecodeProfile() (UserProfile, error) {
  var out UserProfile
  if len(r.Profile) == 0 {
    return out, nil
  }
  if err := json.Unmarshal(r.Profile, &out); err != nil {
    return UserProfile{}, err
  }
  return out, nil
}

// GenreList decodes a jsonb string-array column, tolerating null.
func GenreList(raw datatypes.JSON) []string {
  if len(raw) == 0 {
    return nil
  }
  var out []string
  if err := json.Unmarshal(raw, &out); err != nil {
    return nil
  }
  return out
}
