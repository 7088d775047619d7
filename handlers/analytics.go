package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"go-sentinel/db"
	"go-sentinel/logging"
	"go-sentinel/types"
)

const (
	influencerWindow = 3 * 24 * time.Hour
	influencerLimit  = 20
	trendWindow      = 24 * time.Hour
	trendBucket      = 30 * time.Minute
)

// Influencer aggregates one author's recent activity.
type Influencer struct {
	AuthorID     string  `json:"author_id"`
	AuthorHandle string  `json:"author_handle"`
	PostCount    int     `json:"post_count"`
	AvgToxicity  float64 `json:"avg_toxicity"`
}

// TrendBucket summarizes posting activity in one half-hour slice.
type TrendBucket struct {
	BucketStart time.Time `json:"bucket_start"`
	Count       int       `json:"count"`
	AntiRatio   float64   `json:"anti_ratio"`
	AvgToxicity float64   `json:"avg_toxicity"`
}

// Influencers returns the most active authors over the last three days,
// ranked by post count. Aggregation happens in-process; neither backend
// supports the grouping server-side.
func Influencers(c *gin.Context, store db.Store) {
	since := time.Now().UTC().Add(-influencerWindow)
	posts, err := store.RecentPosts(c.Request.Context(), since)
	if err != nil {
		logging.Error().Err(err).Msg("loading posts for influencers failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute influencers"})
		return
	}

	byAuthor := map[string]*Influencer{}
	toxicity := map[string]float64{}
	for _, post := range posts {
		key := post.AuthorHandle
		if key == "" {
			key = post.AuthorID
		}
		if key == "" {
			continue
		}
		entry, ok := byAuthor[key]
		if !ok {
			entry = &Influencer{AuthorID: post.AuthorID, AuthorHandle: post.AuthorHandle}
			byAuthor[key] = entry
		}
		entry.PostCount++
		toxicity[key] += post.Toxicity
	}

	influencers := make([]Influencer, 0, len(byAuthor))
	for key, entry := range byAuthor {
		entry.AvgToxicity = toxicity[key] / float64(entry.PostCount)
		influencers = append(influencers, *entry)
	}
	sort.Slice(influencers, func(i, j int) bool {
		if influencers[i].PostCount != influencers[j].PostCount {
			return influencers[i].PostCount > influencers[j].PostCount
		}
		return influencers[i].AuthorHandle < influencers[j].AuthorHandle
	})
	if len(influencers) > influencerLimit {
		influencers = influencers[:influencerLimit]
	}

	c.JSON(http.StatusOK, influencers)
}

// Trends buckets the last 24 hours of posts into half-hour slices with the
// share of anti-stance posts and the mean toxicity per slice. Empty slices
// are omitted.
func Trends(c *gin.Context, store db.Store) {
	since := time.Now().UTC().Add(-trendWindow).Truncate(trendBucket)
	posts, err := store.RecentPosts(c.Request.Context(), since)
	if err != nil {
		logging.Error().Err(err).Msg("loading posts for trends failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute trends"})
		return
	}

	buckets := map[time.Time]*TrendBucket{}
	antiCounts := map[time.Time]int{}
	for _, post := range posts {
		start := post.CreatedAt.UTC().Truncate(trendBucket)
		bucket, ok := buckets[start]
		if !ok {
			bucket = &TrendBucket{BucketStart: start}
			buckets[start] = bucket
		}
		bucket.Count++
		bucket.AvgToxicity += post.Toxicity
		if post.Stance == types.StanceAnti {
			antiCounts[start]++
		}
	}

	trends := make([]TrendBucket, 0, len(buckets))
	for start, bucket := range buckets {
		bucket.AvgToxicity /= float64(bucket.Count)
		bucket.AntiRatio = float64(antiCounts[start]) / float64(bucket.Count)
		trends = append(trends, *bucket)
	}
	sort.Slice(trends, func(i, j int) bool {
		return trends[i].BucketStart.Before(trends[j].BucketStart)
	})

	c.JSON(http.StatusOK, trends)
}
