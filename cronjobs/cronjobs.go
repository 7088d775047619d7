package cronjobs

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	language "cloud.google.com/go/language/apiv2"
	"github.com/bluesky-social/indigo/xrpc"
	"github.com/robfig/cron/v3"

	"go-sentinel/db"
	"go-sentinel/detection"
	"go-sentinel/graph"
	"go-sentinel/logging"
	"go-sentinel/processor"
	"go-sentinel/types"
)

const (
	feedMethod   = "app.bsky.feed.getFeed"
	blueskyHost  = "https://public.api.bsky.app"
	feedPageSize = 50
)

// FeedCallParameters identifies one feed pull.
type FeedCallParameters struct {
	URI   string
	Limit int
}

// callFeed fetches a hydrated feed page over xrpc and runs it through the
// ingest pipeline.
func callFeed(ctx context.Context, p FeedCallParameters, store db.Store, nlpClient *language.Client, mirror *graph.Mirror) {
	client := &xrpc.Client{
		Client: &http.Client{Timeout: 10 * time.Second},
		Host:   blueskyHost, // public endpoint for unauthenticated requests
	}

	limit := feedPageSize
	if p.Limit != 0 {
		limit = p.Limit
	}

	params := map[string]interface{}{
		"feed":  p.URI,
		"limit": limit,
	}

	var out types.FeedResponse
	if err := client.Do(ctx, xrpc.Query, "json", feedMethod, params, nil, &out); err != nil {
		logging.Error().Err(err).Str("feed", p.URI).Msg("fetching feed failed")
		return
	}

	results := processor.ProcessFeed(ctx, store, nlpClient, mirror, out)

	saved, existed, failed := 0, 0, 0
	for _, r := range results {
		switch {
		case r.ErrorSaving:
			failed++
		case r.AlreadyExists:
			existed++
		default:
			saved++
		}
	}
	logging.Info().
		Str("feed", p.URI).
		Int("saved", saved).
		Int("existing", existed).
		Int("failed", failed).
		Msg("feed page processed")
}

// feedURIs reads the comma-separated CAMPAIGN_FEED_URIS list.
func feedURIs() []string {
	var uris []string
	for _, raw := range strings.Split(os.Getenv("CAMPAIGN_FEED_URIS"), ",") {
		if uri := strings.TrimSpace(raw); uri != "" {
			uris = append(uris, uri)
		}
	}
	return uris
}

// InitCronJobs schedules feed polling and the periodic evaluation pass.
// Evaluation runs from a single cron entry, so passes never overlap from
// this process.
func InitCronJobs(store db.Store, nlpClient *language.Client, evaluator *detection.Evaluator, mirror *graph.Mirror) *cron.Cron {
	logging.Info().Msg("starting cron jobs")
	c := cron.New()

	uris := feedURIs()
	if len(uris) == 0 {
		logging.Warn().Msg("CAMPAIGN_FEED_URIS not set, feed polling disabled")
	}
	for _, uri := range uris {
		feedURI := uri
		_, err := c.AddFunc("*/10 * * * *", func() {
			logging.Info().Str("feed", feedURI).Msg("cron: polling feed")
			callFeed(context.Background(), FeedCallParameters{URI: feedURI}, store, nlpClient, mirror)
		})
		if err != nil {
			logging.Error().Err(err).Str("feed", feedURI).Msg("scheduling feed poll failed")
		}
	}

	// Evaluation pass: every 15 minutes over the recent window.
	_, err := c.AddFunc("*/15 * * * *", func() {
		logging.Info().Msg("cron: evaluation pass")
		alerts, err := evaluator.EvaluateAlerts(context.Background())
		if err != nil {
			logging.Error().Err(err).Msg("evaluation pass reported errors")
		}
		for _, alert := range alerts {
			logging.Info().
				Str("alert", alert.ID).
				Str("name", alert.Name).
				Float64("riskScore", alert.RiskScore).
				Msg("alert emitted")
		}
	})
	if err != nil {
		logging.Error().Err(err).Msg("scheduling evaluation pass failed")
	}

	c.Start()
	return c
}
