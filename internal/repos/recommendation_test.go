package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mangamuse/mangamuse-backend/internal/logger"
	"github.com/mangamuse/mangamuse-backend/internal/types"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(`CREATE TABLE recommendation_record (id text PRIMARY KEY, user_id text UNIQUE, recommendations text, profile text, last_updated datetime, next_update datetime, created_at datetime, updated_at datetime)`).Error; err != nil {
		t.Fatalf("ddl: %v", err)
	}
	return db
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init: %v", err)
	}
	return log
}

func sampleRecommendations() []types.Recommendation {
	return []types.Recommendation{
		{
			MangaID:         uuid.New(),
			Title:           "Blade Arc",
			CoverImage:      "/covers/blade.jpg",
			Reason:          "Relentless action with the kind of art you favorite most often.",
			MatchPercentage: 91,
			Genres:          []string{"action", "fantasy"},
			GeneratedAt:     time.Now().UTC(),
		},
	}
}

func TestUpsertCreatesThenUpdatesSingleRow(t *testing.T) {
	db := openTestDB(t)
	repo := NewRecommendationRepo(db, newTestLogger(t))
	ctx := context.Background()
	userID := uuid.New()

	profile := types.UserProfile{Genres: []string{"action"}, AvoidGenres: []string{"horror"}}
	recs := sampleRecommendations()

	first, err := repo.Upsert(ctx, nil, userID, recs, profile, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if got := first.NextUpdate.Sub(first.LastUpdated); got != 7*24*time.Hour {
		t.Fatalf("ttl: want=168h got=%s", got)
	}

	// identical second write: still exactly one row, same payload, only the
	// timestamps advance
	second, err := repo.Upsert(ctx, nil, userID, recs, profile, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("update path must return the persisted row id: first=%s second=%s", first.ID, second.ID)
	}

	var count int64
	if err := db.Model(&types.RecommendationRecord{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("rows per user: want=1 got=%d", count)
	}

	stored, err := repo.GetByUserID(ctx, nil, userID)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	gotRecs, err := stored.DecodeRecommendations()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(gotRecs) != 1 || gotRecs[0].MangaID != recs[0].MangaID || gotRecs[0].Reason != recs[0].Reason {
		t.Fatalf("payload changed across identical upserts: %+v", gotRecs)
	}
	gotProfile, err := stored.DecodeProfile()
	if err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if len(gotProfile.Genres) != 1 || gotProfile.Genres[0] != "action" {
		t.Fatalf("profile snapshot wrong: %+v", gotProfile)
	}
}

func TestGetByUserIDNotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewRecommendationRepo(db, newTestLogger(t))

	record, err := repo.GetByUserID(context.Background(), nil, uuid.New())
	if err != nil {
		t.Fatalf("not-found must not error: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil record, got %+v", record)
	}
}

func TestListStale(t *testing.T) {
	db := openTestDB(t)
	repo := NewRecommendationRepo(db, newTestLogger(t))
	ctx := context.Background()

	staleUser := uuid.New()
	freshUser := uuid.New()
	profile := types.UserProfile{}

	if _, err := repo.Upsert(ctx, nil, staleUser, nil, profile, -time.Hour); err != nil {
		t.Fatalf("seed stale: %v", err)
	}
	if _, err := repo.Upsert(ctx, nil, freshUser, nil, profile, time.Hour); err != nil {
		t.Fatalf("seed fresh: %v", err)
	}

	stale, err := repo.ListStale(ctx, nil, time.Now().UTC())
	if err != nil {
		t.Fatalf("list stale: %v", err)
	}
	if len(stale) != 1 || stale[0].UserID != staleUser {
		t.Fatalf("stale listing wrong: %+v", stale)
	}
}
