package detection

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-sentinel/logging"
	"go-sentinel/types"
)

const (
	evaluationWindow = 6 * time.Hour
	alertThreshold   = 60.0

	// Fusion weights
	riskWeight  = 0.5
	burstWeight = 0.2
	coordWeight = 0.2
	botWeight   = 0.1
)

// Evaluator runs campaign-detection passes over the recent post window.
// It keeps no state between passes beyond the alerts it writes.
type Evaluator struct {
	store    PostStore
	embedder Embedder
	window   time.Duration
}

func NewEvaluator(store PostStore, embedder Embedder) *Evaluator {
	return &Evaluator{
		store:    store,
		embedder: embedder,
		window:   evaluationWindow,
	}
}

// groupResult carries one group's outcome out of the scoring goroutines.
type groupResult struct {
	alert *types.Alert
	err   error
}

// EvaluateAlerts runs one pass: snapshot the recent window, group posts by
// primary hashtag, score each group, and append an alert for every group
// whose fused score clears the threshold. Returns the alerts it emitted.
//
// Groups share no state and are scored concurrently. A group containing a
// post without a timestamp fails with a scoped error; the remaining groups
// still evaluate and the pass still writes their alerts.
func (e *Evaluator) EvaluateAlerts(ctx context.Context) ([]types.Alert, error) {
	since := time.Now().UTC().Add(-e.window)
	recent, err := e.store.RecentPosts(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("fetching recent posts: %w", err)
	}

	groups := make(map[string][]types.Post)
	for _, p := range recent {
		top := p.PrimaryHashtag()
		groups[top] = append(groups[top], p)
	}

	logging.Debug().
		Int("posts", len(recent)).
		Int("groups", len(groups)).
		Msg("starting evaluation pass")

	resultsChan := make(chan groupResult, len(groups))
	var wg sync.WaitGroup

	for tag, posts := range groups {
		wg.Add(1)
		go func(tag string, posts []types.Post) {
			defer wg.Done()
			resultsChan <- e.evaluateGroup(ctx, tag, posts)
		}(tag, posts)
	}

	wg.Wait()
	close(resultsChan)

	var alerts []types.Alert
	var groupErrs []error
	for result := range resultsChan {
		if result.err != nil {
			groupErrs = append(groupErrs, result.err)
			continue
		}
		if result.alert != nil {
			alerts = append(alerts, *result.alert)
		}
	}

	// Stable output order regardless of goroutine scheduling.
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].Details.Hashtag < alerts[j].Details.Hashtag
	})

	if len(alerts) > 0 {
		if err := e.store.SaveAlerts(ctx, alerts); err != nil {
			return nil, fmt.Errorf("saving alerts: %w", err)
		}
	}

	logging.Info().
		Int("groups", len(groups)).
		Int("alerts", len(alerts)).
		Int("failedGroups", len(groupErrs)).
		Msg("evaluation pass complete")

	return alerts, errors.Join(groupErrs...)
}

// evaluateGroup scores one hashtag group and builds its candidate alert.
func (e *Evaluator) evaluateGroup(ctx context.Context, tag string, posts []types.Post) groupResult {
	for _, p := range posts {
		if p.CreatedAt.IsZero() {
			// Temporal ordering is load-bearing for burst and coordination
			// scoring; refuse to score the group rather than mis-score it.
			return groupResult{err: fmt.Errorf("group %q: post %s has no timestamp", tag, p.ID)}
		}
	}

	risk := ComputeRisk(posts)
	burst := BurstScore(posts)
	coord := CoordinationScore(ctx, e.embedder, posts)
	bot := BotLikelihood(ctx, e.embedder, posts)

	total := math.Min(maxScore, riskWeight*risk+burstWeight*burst+coordWeight*coord+botWeight*bot)

	logging.Debug().
		Str("hashtag", tag).
		Int("count", len(posts)).
		Float64("risk", risk).
		Float64("burst", burst).
		Float64("coordination", coord).
		Float64("bot", bot).
		Float64("total", total).
		Msg("scored group")

	if total < alertThreshold {
		return groupResult{}
	}

	alert := types.Alert{
		ID:        uuid.NewString(),
		Name:      fmt.Sprintf("Spike around #%s", tag),
		RiskScore: total,
		Details: types.AlertDetails{
			Hashtag: tag,
			Count:   len(posts),
			Scores: types.AlertScores{
				Risk:         risk,
				Burst:        burst,
				Coordination: coord,
				Bot:          bot,
			},
		},
		CreatedAt: time.Now().UTC(),
	}
	return groupResult{alert: &alert}
}
