package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mangamuse/mangamuse-backend/internal/types"
)

func testCandidates(n int) []types.CandidateItem {
	out := make([]types.CandidateItem, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.CandidateItem{
			ID:       uuid.New(),
			Title:    "Title",
			Genres:   []string{"action"},
			CoverURL: "/covers/vol1.jpg",
		})
	}
	return out
}

func TestAssembleDropsHallucinatedIDs(t *testing.T) {
	candidates := testCandidates(3)
	now := time.Now().UTC()

	picks := []modelPick{
		{ID: candidates[1].ID.String(), Reason: "fits", Match: 90},
		{ID: uuid.NewString(), Reason: "invented by the model", Match: 99},
		{ID: candidates[0].ID.String(), Reason: "also fits", Match: 80},
	}

	recs, err := assembleRecommendations(picks, candidates, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("recs: want=2 got=%d", len(recs))
	}
	// model output order is preserved
	if recs[0].MangaID != candidates[1].ID || recs[1].MangaID != candidates[0].ID {
		t.Fatalf("order not preserved: %+v", recs)
	}
	for _, rec := range recs {
		if !rec.GeneratedAt.Equal(now) {
			t.Fatalf("generatedAt not stamped: %+v", rec)
		}
	}
}

func TestAssembleAllHallucinated(t *testing.T) {
	candidates := testCandidates(2)
	picks := []modelPick{{ID: uuid.NewString(), Reason: "nope", Match: 50}}

	_, err := assembleRecommendations(picks, candidates, time.Now().UTC())
	var invalid *NoValidRecommendationsError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected NoValidRecommendationsError, got %v", err)
	}
}

func TestClampMatch(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{0, 1},
		{-12, 1},
		{1, 1},
		{55.4, 55},
		{100, 100},
		{250, 100},
	}
	for _, tc := range cases {
		if got := clampMatch(tc.in); got != tc.want {
			t.Fatalf("clampMatch(%v): want=%d got=%d", tc.in, tc.want, got)
		}
	}
}

func TestNormalizeCoverImage(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", placeholderCover},
		{"covers/naruto.jpg", "/covers/naruto.jpg"},
		{"/covers/naruto.webp", "/covers/naruto.webp"},
		{"https://cdn.example.com/c.png?w=300", "https://cdn.example.com/c.png?w=300"},
		{"https://cdn.example.com/page.html", placeholderCover},
		{"not-an-image", placeholderCover},
		{placeholderCover, placeholderCover},
	}
	for _, tc := range cases {
		if got := normalizeCoverImage(tc.in); got != tc.want {
			t.Fatalf("normalizeCoverImage(%q): want=%q got=%q", tc.in, tc.want, got)
		}
	}
}
