package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go-sentinel/detection"
	"go-sentinel/types"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLitePostRoundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	post := types.Post{
		ID:           "at://did:a/post/1",
		Platform:     "bluesky",
		AuthorID:     "did:a",
		AuthorHandle: "alice.example",
		Text:         "boycott the rollout",
		Language:     "en",
		Toxicity:     0.7,
		Stance:       types.StanceAnti,
		Hashtags:     []string{"rollout", "tech"},
		Mentions:     []string{"did:b"},
		Meta:         map[string]interface{}{"likes": 3.0},
		CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 500000000, time.UTC),
	}
	if err := store.SavePost(ctx, post); err != nil {
		t.Fatalf("SavePost() error = %v", err)
	}

	got, err := store.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPost() error = %v", err)
	}
	if got.Text != post.Text || got.Toxicity != post.Toxicity || got.Stance != post.Stance {
		t.Errorf("GetPost() = %+v, want %+v", got, post)
	}
	if len(got.Hashtags) != 2 || got.Hashtags[0] != "rollout" {
		t.Errorf("hashtags = %v, want order preserved", got.Hashtags)
	}
	if !got.CreatedAt.Equal(post.CreatedAt) {
		t.Errorf("createdAt = %v, want %v", got.CreatedAt, post.CreatedAt)
	}

	if _, err := store.GetPost(ctx, "missing"); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("GetPost(missing) error = %v, want ErrPostNotFound", err)
	}
}

func TestSQLiteRecentPostsWindowAndOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Sub-second fractions exercise the fixed-width timestamp encoding.
	stamps := []time.Time{
		base.Add(-2 * time.Hour),
		base.Add(30 * time.Minute),
		base.Add(30*time.Minute + 500*time.Millisecond),
		base.Add(time.Hour),
	}
	for i, at := range stamps {
		post := types.Post{
			ID:        string(rune('a' + i)),
			Platform:  "bluesky",
			Text:      "t",
			CreatedAt: at,
		}
		if err := store.SavePost(ctx, post); err != nil {
			t.Fatalf("SavePost() error = %v", err)
		}
	}

	got, err := store.RecentPosts(ctx, base)
	if err != nil {
		t.Fatalf("RecentPosts() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("RecentPosts() returned %d posts, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.Before(got[i-1].CreatedAt) {
			t.Fatalf("RecentPosts() not in ascending order: %v before %v", got[i].CreatedAt, got[i-1].CreatedAt)
		}
	}
}

func TestSQLitePostsWithHashtag(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	posts := []types.Post{
		{ID: "1", Platform: "bluesky", Text: "a", Hashtags: []string{"flood"}, CreatedAt: base},
		{ID: "2", Platform: "bluesky", Text: "b", Hashtags: []string{"other", "flood"}, CreatedAt: base.Add(time.Minute)},
		{ID: "3", Platform: "bluesky", Text: "c", Hashtags: []string{"weekend"}, CreatedAt: base.Add(2 * time.Minute)},
		{ID: "4", Platform: "bluesky", Text: "d", CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, p := range posts {
		if err := store.SavePost(ctx, p); err != nil {
			t.Fatalf("SavePost() error = %v", err)
		}
	}

	got, err := store.PostsWithHashtag(ctx, "flood", 10)
	if err != nil {
		t.Fatalf("PostsWithHashtag() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("PostsWithHashtag() returned %d posts, want 2", len(got))
	}
	if got[0].ID != "2" || got[1].ID != "1" {
		t.Errorf("PostsWithHashtag() order = [%s %s], want newest first", got[0].ID, got[1].ID)
	}

	limited, err := store.PostsWithHashtag(ctx, "flood", 1)
	if err != nil {
		t.Fatalf("PostsWithHashtag() error = %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "2" {
		t.Errorf("PostsWithHashtag() with limit 1 = %+v, want post 2 only", limited)
	}
}

func TestSQLiteAlerts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	alerts := []types.Alert{
		{
			ID:        "alert-1",
			Name:      "Spike around #flood",
			RiskScore: 82.5,
			Details: types.AlertDetails{
				Hashtag: "flood",
				Count:   60,
				Scores:  types.AlertScores{Risk: 95, Burst: 100, Coordination: 100, Bot: 100},
			},
			CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:        "alert-2",
			Name:      "Spike around #rollout",
			RiskScore: 61,
			Details:   types.AlertDetails{Hashtag: "rollout", Count: 12},
			CreatedAt: time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC),
		},
	}
	if err := store.SaveAlerts(ctx, alerts); err != nil {
		t.Fatalf("SaveAlerts() error = %v", err)
	}

	got, err := store.GetAlert(ctx, "alert-1")
	if err != nil {
		t.Fatalf("GetAlert() error = %v", err)
	}
	if got.Details.Hashtag != "flood" || got.Details.Scores.Burst != 100 {
		t.Errorf("GetAlert() details = %+v, want stored scores", got.Details)
	}

	if _, err := store.GetAlert(ctx, "missing"); !errors.Is(err, detection.ErrAlertNotFound) {
		t.Errorf("GetAlert(missing) error = %v, want ErrAlertNotFound", err)
	}

	listed, err := store.ListAlerts(ctx)
	if err != nil {
		t.Fatalf("ListAlerts() error = %v", err)
	}
	if len(listed) != 2 || listed[0].ID != "alert-2" {
		t.Errorf("ListAlerts() = %+v, want newest first", listed)
	}
}

func TestSQLiteKeywords(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	kw := types.Keyword{
		ID:        "kw-1",
		Term:      "dam failure",
		Category:  "infrastructure",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.SaveKeyword(ctx, kw); err != nil {
		t.Fatalf("SaveKeyword() error = %v", err)
	}
	dup := kw
	dup.ID = "kw-2"
	if err := store.SaveKeyword(ctx, dup); !errors.Is(err, ErrKeywordExists) {
		t.Fatalf("SaveKeyword(duplicate term) error = %v, want ErrKeywordExists", err)
	}

	other := types.Keyword{
		ID:        "kw-3",
		Term:      "boycott",
		Category:  "general",
		CreatedAt: time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC),
	}
	if err := store.SaveKeyword(ctx, other); err != nil {
		t.Fatalf("SaveKeyword() error = %v", err)
	}

	all, err := store.ListKeywords(ctx, "")
	if err != nil {
		t.Fatalf("ListKeywords() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListKeywords() returned %d keywords, want 2", len(all))
	}

	filtered, err := store.ListKeywords(ctx, "dam")
	if err != nil {
		t.Fatalf("ListKeywords(dam) error = %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != "kw-1" {
		t.Errorf("ListKeywords(dam) = %+v, want the dam failure entry", filtered)
	}

	if err := store.DeleteKeyword(ctx, "kw-1"); err != nil {
		t.Fatalf("DeleteKeyword() error = %v", err)
	}
	if err := store.DeleteKeyword(ctx, "kw-1"); !errors.Is(err, ErrKeywordNotFound) {
		t.Errorf("DeleteKeyword(deleted) error = %v, want ErrKeywordNotFound", err)
	}
}
