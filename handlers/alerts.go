package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-sentinel/db"
	"go-sentinel/detection"
	"go-sentinel/logging"
	"go-sentinel/types"
)

// ListAlerts runs an evaluation pass over the recent window, then returns
// all alerts newest first. Group-scoped evaluation failures are logged but
// don't fail the listing; the unaffected groups have already been scored
// and persisted.
func ListAlerts(c *gin.Context, store db.Store, evaluator *detection.Evaluator) {
	if _, err := evaluator.EvaluateAlerts(c.Request.Context()); err != nil {
		logging.Warn().Err(err).Msg("evaluation pass reported errors")
	}

	alerts, err := store.ListAlerts(c.Request.Context())
	if err != nil {
		logging.Error().Err(err).Msg("listing alerts failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list alerts"})
		return
	}
	if alerts == nil {
		alerts = []types.Alert{}
	}
	c.JSON(http.StatusOK, alerts)
}

// CampaignDetails returns an alert's summary plus the evidence posts behind
// its grouping key.
func CampaignDetails(c *gin.Context, evaluator *detection.Evaluator) {
	details, err := evaluator.CampaignDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, detection.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		logging.Error().Err(err).Str("alert", c.Param("id")).Msg("campaign details failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load campaign details"})
		return
	}
	c.JSON(http.StatusOK, details)
}
