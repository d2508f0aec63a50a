package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mangamuse/mangamuse-backend/internal/config"
	"github.com/mangamuse/mangamuse-backend/internal/logger"
	"github.com/mangamuse/mangamuse-backend/internal/types"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init: %v", err)
	}
	return log
}

// openTestDB gives each test an isolated in-memory sqlite database with the
// production table names. DDL is spelled out by hand because the postgres
// models carry uuid_generate_v4 defaults sqlite cannot evaluate.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	ddl := []string{
		`CREATE TABLE "user" (id text PRIMARY KEY, email text, display_name text, created_at datetime, updated_at datetime)`,
		`CREATE TABLE manga (id text PRIMARY KEY, title text, author text, genres text, description text, cover_url text, status text, popularity integer, created_at datetime, updated_at datetime, deleted_at datetime)`,
		`CREATE TABLE reading_history_entry (id text PRIMARY KEY, user_id text, manga_id text, status text, created_at datetime, updated_at datetime)`,
		`CREATE TABLE favorite (id text PRIMARY KEY, user_id text, manga_id text, created_at datetime)`,
		`CREATE TABLE user_preference (id text PRIMARY KEY, user_id text UNIQUE, favorite_genres text, exclude_genres text, onboarded boolean, created_at datetime, updated_at datetime)`,
		`CREATE TABLE recommendation_record (id text PRIMARY KEY, user_id text UNIQUE, recommendations text, profile text, last_updated datetime, next_update datetime, created_at datetime, updated_at datetime)`,
	}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("ddl: %v", err)
		}
	}
	return db
}

func testConfig() config.RecommenderConfig {
	cfg := config.Default()
	return cfg
}

func mustJSONGenres(t *testing.T, genres []string) []byte {
	t.Helper()
	raw, err := json.Marshal(genres)
	if err != nil {
		t.Fatalf("marshal genres: %v", err)
	}
	return raw
}

func seedManga(t *testing.T, db *gorm.DB, title string, genres []string, popularity int64, cover string) *types.Manga {
	t.Helper()
	m := &types.Manga{
		Title:       title,
		Genres:      mustJSONGenres(t, genres),
		Description: "A long running series about " + title + ".",
		CoverURL:    cover,
		Popularity:  popularity,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("seed manga: %v", err)
	}
	return m
}

func seedUser(t *testing.T, db *gorm.DB, email string) *types.User {
	t.Helper()
	u := &types.User{Email: email}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedHistory(t *testing.T, db *gorm.DB, userID, mangaID uuid.UUID, status string) {
	t.Helper()
	e := &types.ReadingHistoryEntry{UserID: userID, MangaID: mangaID, Status: status}
	if err := db.Create(e).Error; err != nil {
		t.Fatalf("seed history: %v", err)
	}
}

// fakeRecordCache is an in-memory stand-in for the redis record cache.
type fakeRecordCache struct {
	records  map[uuid.UUID]*types.RecommendationRecord
	lockHeld bool
	sets     int
}

func newFakeRecordCache() *fakeRecordCache {
	return &fakeRecordCache{records: map[uuid.UUID]*types.RecommendationRecord{}}
}

func (f *fakeRecordCache) GetRecord(ctx context.Context, userID uuid.UUID) *types.RecommendationRecord {
	return f.records[userID]
}

func (f *fakeRecordCache) SetRecord(ctx context.Context, userID uuid.UUID, record *types.RecommendationRecord) {
	f.records[userID] = record
	f.sets++
}

func (f *fakeRecordCache) InvalidateRecord(ctx context.Context, userID uuid.UUID) {
	delete(f.records, userID)
}

func (f *fakeRecordCache) AcquireGenerationLock(ctx context.Context, userID uuid.UUID) (func(), bool) {
	if f.lockHeld {
		return func() {}, false
	}
	return func() {}, true
}

// fakeInference scripts the external service per call, in call order.
type fakeInference struct {
	calls  int
	script []func(profile types.UserProfile, candidates []types.CandidateItem, want int) (string, error)
}

func (f *fakeInference) RankCandidates(ctx context.Context, profile types.UserProfile, candidates []types.CandidateItem, want int) (string, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	return f.script[idx](profile, candidates, want)
}

// rankTop answers the way a well-behaved model would: the first want
// candidates, valid JSON.
func rankTop(profile types.UserProfile, candidates []types.CandidateItem, want int) (string, error) {
	n := want
	if n > len(candidates) {
		n = len(candidates)
	}
	type entry struct {
		ID              string `json:"id"`
		Reason          string `json:"reason"`
		MatchPercentage int    `json:"matchPercentage"`
	}
	entries := make([]entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, entry{
			ID:              candidates[i].ID.String(),
			Reason:          "A strong match for your favorite genres and pacing preferences.",
			MatchPercentage: 95 - i,
		})
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
