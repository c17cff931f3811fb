package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tomanage/internal/notify"
	"tomanage/internal/recommend"
	"tomanage/internal/services"
)

type RecommendationHandler struct {
	recs    services.RecommendationService
	deliver services.NotificationService
}

func NewRecommendationHandler(recs services.RecommendationService, deliver services.NotificationService) *RecommendationHandler {
	return &RecommendationHandler{recs: recs, deliver: deliver}
}

// @Summary      Recommend a task
// @Tags         Recommendations
// @Produce      json
// @Security     BearerAuth
// @Param        method  query     string  false  "smart, energy, quick, eisenhower or focus"
// @Success      200     {object}  recommend.Recommendation
// @Failure      400     {object}  map[string]string
// @Router       /recommendations [get]
func (h *RecommendationHandler) Recommend(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	method, err := recommend.ParseMethod(c.Query("method"))
	if err != nil {
		writeError(c, "recommend", "get", err)
		return
	}
	rec, err := h.recs.Recommend(c.Request.Context(), userID, method)
	if err != nil {
		writeError(c, "recommend", "get", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type deliverRequest struct {
	Method  string `json:"method"`
	Channel string `json:"channel" binding:"required"`
}

// @Summary      Send a recommendation
// @Description  Computes a recommendation and sends it to the Telegram chat or e-mail stored in preferences
// @Tags         Recommendations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      deliverRequest  true  "Method and channel (telegram or email)"
// @Success      200   {object}  services.Delivery
// @Failure      400   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /recommendations/deliver [post]
func (h *RecommendationHandler) Deliver(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req deliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "recommend", "deliver", err)
		return
	}
	method, err := recommend.ParseMethod(req.Method)
	if err != nil {
		writeError(c, "recommend", "deliver", err)
		return
	}
	channel, err := notify.ParseChannel(req.Channel)
	if err != nil {
		writeError(c, "recommend", "deliver", err)
		return
	}
	d, err := h.deliver.Deliver(c.Request.Context(), userID, method, channel)
	if err != nil {
		writeError(c, "recommend", "deliver", err)
		return
	}
	c.JSON(http.StatusOK, d)
}
