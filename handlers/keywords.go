package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go-sentinel/db"
	"go-sentinel/logging"
	"go-sentinel/types"
)

// KeywordIn is the lexicon entry payload.
type KeywordIn struct {
	Term        string `json:"term" binding:"required"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

func CreateKeyword(c *gin.Context, store db.Store) {
	var payload KeywordIn
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if payload.Category == "" {
		payload.Category = "general"
	}

	kw := types.Keyword{
		ID:          uuid.NewString(),
		Term:        payload.Term,
		Category:    payload.Category,
		Description: payload.Description,
		CreatedAt:   time.Now().UTC(),
	}

	if err := store.SaveKeyword(c.Request.Context(), kw); err != nil {
		if errors.Is(err, db.ErrKeywordExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "term already exists"})
			return
		}
		logging.Error().Err(err).Str("term", kw.Term).Msg("creating keyword failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create keyword"})
		return
	}

	c.JSON(http.StatusOK, kw)
}

func ListKeywords(c *gin.Context, store db.Store) {
	keywords, err := store.ListKeywords(c.Request.Context(), c.Query("q"))
	if err != nil {
		logging.Error().Err(err).Msg("listing keywords failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list keywords"})
		return
	}
	if keywords == nil {
		keywords = []types.Keyword{}
	}
	c.JSON(http.StatusOK, keywords)
}

func DeleteKeyword(c *gin.Context, store db.Store) {
	if err := store.DeleteKeyword(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, db.ErrKeywordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "keyword not found"})
			return
		}
		logging.Error().Err(err).Str("keyword", c.Param("id")).Msg("deleting keyword failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete keyword"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
