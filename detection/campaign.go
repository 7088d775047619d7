package detection

import (
	"context"
	"fmt"
	"time"

	"go-sentinel/types"
)

// maxCampaignPosts bounds the evidence sample returned for one alert.
const maxCampaignPosts = 200

// AlertSummary is the alert header returned with campaign details.
type AlertSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	RiskScore float64   `json:"risk_score"`
	CreatedAt time.Time `json:"created_at"`
}

// CampaignPost is one evidence post in a campaign sample.
type CampaignPost struct {
	ID        string       `json:"id"`
	Text      string       `json:"text"`
	Stance    types.Stance `json:"stance"`
	Toxicity  float64      `json:"toxicity"`
	CreatedAt time.Time    `json:"created_at"`
}

// CampaignDetails is an alert plus the posts that back it.
type CampaignDetails struct {
	Alert       AlertSummary   `json:"alert"`
	SamplePosts []CampaignPost `json:"sample_posts"`
}

// CampaignDetails re-derives the evidence behind an alert from its stored
// grouping key. The sample is not limited to the original evaluation
// window: the campaign may still be active, so it spans all time, newest
// first. An alert without a grouping key yields an empty sample. Unknown
// ids surface ErrAlertNotFound.
func (e *Evaluator) CampaignDetails(ctx context.Context, alertID string) (CampaignDetails, error) {
	alert, err := e.store.GetAlert(ctx, alertID)
	if err != nil {
		return CampaignDetails{}, err
	}

	details := CampaignDetails{
		Alert: AlertSummary{
			ID:        alert.ID,
			Name:      alert.Name,
			RiskScore: alert.RiskScore,
			CreatedAt: alert.CreatedAt,
		},
		SamplePosts: []CampaignPost{},
	}

	tag := alert.Details.Hashtag
	if tag == "" {
		return details, nil
	}

	posts, err := e.store.PostsWithHashtag(ctx, tag, maxCampaignPosts)
	if err != nil {
		return CampaignDetails{}, fmt.Errorf("fetching campaign posts for #%s: %w", tag, err)
	}
	for _, p := range posts {
		details.SamplePosts = append(details.SamplePosts, CampaignPost{
			ID:        p.ID,
			Text:      p.Text,
			Stance:    p.Stance,
			Toxicity:  p.Toxicity,
			CreatedAt: p.CreatedAt,
		})
	}

	return details, nil
}
