package processor

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-sentinel/db"
	"go-sentinel/graph"
	"go-sentinel/types"
)

type fakeStore struct {
	mu    sync.Mutex
	posts map[string]types.Post
	saves int
}

func newFakeStore() *fakeStore {
	return &fakeStore{posts: map[string]types.Post{}}
}

func (f *fakeStore) SavePost(_ context.Context, post types.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[post.ID] = post
	f.saves++
	return nil
}

func (f *fakeStore) GetPost(_ context.Context, id string) (types.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[id]
	if !ok {
		return types.Post{}, db.ErrPostNotFound
	}
	return post, nil
}

func testMirror(t *testing.T) *graph.Mirror {
	t.Helper()
	t.Setenv("GRAPH_SYNC_URL", "")
	return graph.NewMirrorFromEnv()
}

func TestProcessPostAnnotatesAndSaves(t *testing.T) {
	store := newFakeStore()
	post := types.Post{
		ID:        "at://did:a/post/1",
		Platform:  "bluesky",
		AuthorID:  "did:a",
		Text:      "boycott the rollout",
		Hashtags:  []string{"rollout"},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	saved, existed, err := ProcessPost(context.Background(), store, nil, testMirror(t), post)
	if err != nil {
		t.Fatalf("ProcessPost() error = %v", err)
	}
	if existed {
		t.Fatal("ProcessPost() reported an existing post on first ingest")
	}
	if saved.Language != "und" {
		t.Errorf("language = %q, want fallback %q", saved.Language, "und")
	}
	if saved.Stance != types.StanceAnti {
		t.Errorf("stance = %q, want anti", saved.Stance)
	}
	if _, err := store.GetPost(context.Background(), post.ID); err != nil {
		t.Errorf("post not persisted: %v", err)
	}
}

func TestProcessPostRejectsMissingID(t *testing.T) {
	_, _, err := ProcessPost(context.Background(), newFakeStore(), nil, testMirror(t), types.Post{Text: "no id"})
	if err == nil {
		t.Fatal("ProcessPost() error = nil, want error for missing id")
	}
}

func TestProcessPostFillsMissingTimestamp(t *testing.T) {
	store := newFakeStore()
	before := time.Now().UTC()
	saved, _, err := ProcessPost(context.Background(), store, nil, testMirror(t), types.Post{
		ID:       "at://did:a/post/2",
		Platform: "bluesky",
		Text:     "hello",
	})
	if err != nil {
		t.Fatalf("ProcessPost() error = %v", err)
	}
	if saved.CreatedAt.Before(before) || saved.CreatedAt.After(time.Now().UTC()) {
		t.Errorf("createdAt = %v, want filled with ingest time", saved.CreatedAt)
	}
}

func TestProcessPostKnownIDIsImmutable(t *testing.T) {
	store := newFakeStore()
	mirror := testMirror(t)
	original := types.Post{
		ID:        "at://did:a/post/3",
		Platform:  "bluesky",
		Text:      "first version",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if _, _, err := ProcessPost(context.Background(), store, nil, mirror, original); err != nil {
		t.Fatalf("ProcessPost() error = %v", err)
	}

	changed := original
	changed.Text = "edited version"
	saved, existed, err := ProcessPost(context.Background(), store, nil, mirror, changed)
	if err != nil {
		t.Fatalf("ProcessPost() error = %v", err)
	}
	if !existed {
		t.Fatal("ProcessPost() did not report the known id")
	}
	if saved.Text != "first version" {
		t.Errorf("stored text = %q, want original preserved", saved.Text)
	}
	if store.saves != 1 {
		t.Errorf("store saw %d saves, want 1", store.saves)
	}
}

func TestPostFromFeedEntry(t *testing.T) {
	entry := types.FeedEntry{
		Post: types.FeedPost{
			URI: "at://did:a/app.bsky.feed.post/xyz",
			Author: types.FeedAuthor{
				DID:    "did:a",
				Handle: "alice.example",
			},
			Record: types.FeedRecord{
				Text:      "flood warnings everywhere",
				CreatedAt: "2026-03-01T12:00:00.123Z",
				Facets: []types.FeedFacet{
					{Features: []types.FeedFeature{{Type: "app.bsky.richtext.facet#tag", Tag: "flood"}}},
					{Features: []types.FeedFeature{{Type: "app.bsky.richtext.facet#mention", DID: "did:b"}}},
					{Features: []types.FeedFeature{{Type: "app.bsky.richtext.facet#tag", Tag: "weather"}}},
				},
			},
			LikeCount:   7,
			RepostCount: 2,
			ReplyCount:  1,
		},
	}

	post := PostFromFeedEntry(entry)
	if post.ID != entry.Post.URI || post.Platform != "bluesky" {
		t.Errorf("identity mapping wrong: %+v", post)
	}
	if len(post.Hashtags) != 2 || post.Hashtags[0] != "flood" || post.Hashtags[1] != "weather" {
		t.Errorf("hashtags = %v, want facet order preserved", post.Hashtags)
	}
	if len(post.Mentions) != 1 || post.Mentions[0] != "did:b" {
		t.Errorf("mentions = %v, want [did:b]", post.Mentions)
	}
	if post.CreatedAt.IsZero() {
		t.Error("createdAt not parsed")
	}
	if post.Meta["likes"] != 7 {
		t.Errorf("meta likes = %v, want 7", post.Meta["likes"])
	}
}

func TestParseFeedTime(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantZero bool
	}{
		{"rfc3339 with fraction", "2026-03-01T12:00:00.123456Z", false},
		{"rfc3339 without fraction", "2026-03-01T12:00:00Z", false},
		{"empty", "", true},
		{"garbage", "yesterday-ish", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFeedTime(tt.raw)
			if got.IsZero() != tt.wantZero {
				t.Errorf("parseFeedTime(%q) = %v, wantZero = %v", tt.raw, got, tt.wantZero)
			}
		})
	}
}
