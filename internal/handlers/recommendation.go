package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mangamuse/mangamuse-backend/internal/logger"
	"github.com/mangamuse/mangamuse-backend/internal/services"
	"github.com/mangamuse/mangamuse-backend/internal/types"
)

type RecommendationHandler struct {
	log  *logger.Logger
	recs services.RecommendationService
}

func NewRecommendationHandler(log *logger.Logger, recs services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{
		log:  log.With("handler", "RecommendationHandler"),
		recs: recs,
	}
}

// GetRecommendations is the on-demand trigger: viewing the page refreshes
// the record synchronously when it is absent or stale.
func (h *RecommendationHandler) GetRecommendations(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	record, err := h.recs.CheckAndRefresh(c.Request.Context(), userID)
	if err != nil {
		h.respondPipelineError(c, userID, err)
		return
	}
	h.respondRecord(c, record)
}

// ForceRefresh regenerates regardless of staleness.
func (h *RecommendationHandler) ForceRefresh(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	record, err := h.recs.Refresh(c.Request.Context(), userID)
	if err != nil {
		h.respondPipelineError(c, userID, err)
		return
	}
	h.respondRecord(c, record)
}

func parseUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return uuid.Nil, false
	}
	return userID, true
}

func (h *RecommendationHandler) respondRecord(c *gin.Context, record *types.RecommendationRecord) {
	if record == nil {
		RespondError(c, http.StatusNotFound, "no_recommendations", errors.New("user has no recommendation record yet"))
		return
	}
	recommendations, err := record.DecodeRecommendations()
	if err != nil {
		h.log.Error("Stored recommendations undecodable", "user_id", record.UserID, "error", err)
		RespondError(c, http.StatusInternalServerError, "record_corrupt", err)
		return
	}
	RespondOK(c, gin.H{
		"recommendations": recommendations,
		"last_updated":    record.LastUpdated,
		"next_update":     record.NextUpdate,
	})
}

func (h *RecommendationHandler) respondPipelineError(c *gin.Context, userID uuid.UUID, err error) {
	if errors.Is(err, services.ErrEmptyCandidateSet) {
		// nothing left to recommend is not a failure of recommendation
		RespondOK(c, gin.H{"recommendations": []types.Recommendation{}, "exhausted": true})
		return
	}
	h.log.Error("Recommendation pipeline failed", "user_id", userID, "error", err)
	RespondError(c, http.StatusInternalServerError, "recommendations_failed", err)
}
