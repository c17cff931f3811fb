package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tomanage/internal/models"
	"tomanage/internal/services"
)

// ProfileHandler exposes preferences, learned patterns and analytics.
type ProfileHandler struct {
	service services.ProfileService
}

func NewProfileHandler(service services.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// @Summary      Current context
// @Tags         Profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.CurrentContext
// @Router       /context [get]
func (h *ProfileHandler) Context(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	cc, err := h.service.CurrentContext(c.Request.Context(), userID)
	if err != nil {
		writeError(c, "profile", "context", err)
		return
	}
	c.JSON(http.StatusOK, cc)
}

// @Summary      User profile
// @Tags         Profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.UserProfile
// @Router       /profile [get]
func (h *ProfileHandler) Profile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	p, err := h.service.Profile(c.Request.Context(), userID)
	if err != nil {
		writeError(c, "profile", "get", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProfileHandler) Preferences(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	prefs, err := h.service.Preferences(c.Request.Context(), userID)
	if err != nil {
		writeError(c, "profile", "preferences", err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// @Summary      Replace preferences
// @Tags         Profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        prefs  body      models.Preferences  true  "Preferences"
// @Success      200    {object}  models.Preferences
// @Failure      400    {object}  map[string]string
// @Router       /preferences [put]
func (h *ProfileHandler) SavePreferences(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var prefs models.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		badRequest(c, "profile", "preferences", err)
		return
	}
	if err := h.service.SavePreferences(c.Request.Context(), userID, prefs); err != nil {
		writeError(c, "profile", "preferences", err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (h *ProfileHandler) Patterns(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	all, err := h.service.Patterns(c.Request.Context(), userID)
	if err != nil {
		writeError(c, "profile", "patterns", err)
		return
	}
	c.JSON(http.StatusOK, all)
}

func (h *ProfileHandler) Pattern(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	t, err := models.ParsePatternType(c.Param("type"))
	if err != nil {
		writeError(c, "profile", "pattern", err)
		return
	}
	data, found, err := h.service.GetPattern(c.Request.Context(), userID, t)
	if err != nil {
		writeError(c, "profile", "pattern", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patternType": t, "data": data, "found": found})
}

func (h *ProfileHandler) SavePattern(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	t, err := models.ParsePatternType(c.Param("type"))
	if err != nil {
		writeError(c, "profile", "pattern", err)
		return
	}
	var data models.Pattern
	if err := c.ShouldBindJSON(&data); err != nil {
		badRequest(c, "profile", "pattern", err)
		return
	}
	if err := h.service.SavePattern(c.Request.Context(), userID, t, data); err != nil {
		writeError(c, "profile", "pattern", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patternType": t, "data": data})
}

// @Summary      Completion analytics
// @Tags         Profile
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Most recent N entries"
// @Success      200    {array}   models.AnalyticsEntry
// @Router       /analytics [get]
func (h *ProfileHandler) Analytics(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	entries, err := h.service.Analytics(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, "profile", "analytics", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *ProfileHandler) SaveAnalytics(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var e models.AnalyticsEntry
	if err := c.ShouldBindJSON(&e); err != nil {
		badRequest(c, "profile", "analytics", err)
		return
	}
	if err := h.service.SaveAnalytics(c.Request.Context(), userID, e); err != nil {
		writeError(c, "profile", "analytics", err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *ProfileHandler) ClearAnalytics(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.service.ClearAnalytics(c.Request.Context(), userID); err != nil {
		writeError(c, "profile", "analytics", err)
		return
	}
	c.Status(http.StatusNoContent)
}
