package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tomanage/internal/services"
)

// IntegrationsHandler serves the TickTick connection and sync endpoints.
type IntegrationsHandler struct {
	ticktick services.TickTickService
	sync     services.SyncService
}

func NewIntegrationsHandler(tt services.TickTickService, syncSvc services.SyncService) *IntegrationsHandler {
	return &IntegrationsHandler{ticktick: tt, sync: syncSvc}
}

// @Summary      TickTick consent URL
// @Tags         TickTick
// @Produce      json
// @Security     BearerAuth
// @Param        redirect_uri  query     string  false  "Overrides the configured redirect URI"
// @Success      200           {object}  map[string]string
// @Router       /ticktick/auth-url [get]
func (h *IntegrationsHandler) AuthURL(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	u, err := h.ticktick.AuthURL(c.Request.Context(), userID, c.Query("redirect_uri"))
	if err != nil {
		writeError(c, "ticktick", "auth-url", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": u})
}

type exchangeRequest struct {
	Code        string `json:"code" binding:"required"`
	State       string `json:"state" binding:"required"`
	RedirectURI string `json:"redirectUri"`
}

// @Summary      Finish TickTick OAuth
// @Tags         TickTick
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      exchangeRequest  true  "Authorization code and state"
// @Success      200   {object}  map[string]bool
// @Failure      400   {object}  map[string]string
// @Router       /ticktick/exchange [post]
func (h *IntegrationsHandler) Exchange(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req exchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "ticktick", "exchange", err)
		return
	}
	if err := h.ticktick.Exchange(c.Request.Context(), userID, req.Code, req.State, req.RedirectURI); err != nil {
		writeError(c, "ticktick", "exchange", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true})
}

func (h *IntegrationsHandler) Status(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	connected, err := h.ticktick.IsConnected(c.Request.Context(), userID)
	if err != nil {
		writeError(c, "ticktick", "status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": connected})
}

func (h *IntegrationsHandler) Disconnect(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.ticktick.Disconnect(c.Request.Context(), userID); err != nil {
		writeError(c, "ticktick", "disconnect", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary      Remote tasks
// @Description  Cached TickTick tasks; refetched when forced or older than maxAge seconds
// @Tags         TickTick
// @Produce      json
// @Security     BearerAuth
// @Param        force   query     bool  false  "Bypass the cache"
// @Param        maxAge  query     int   false  "Cache age limit in seconds"
// @Success      200     {object}  repositories.ExternalSnapshot
// @Failure      409     {object}  map[string]string
// @Router       /ticktick/tasks [get]
func (h *IntegrationsHandler) Tasks(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	maxAge, ok := queryInt(c, "maxAge", 0)
	if !ok {
		return
	}
	force := c.Query("force") == "true" || c.Query("force") == "1"
	snap, err := h.ticktick.ExternalTasks(c.Request.Context(), userID, force, time.Duration(maxAge)*time.Second)
	if err != nil {
		writeError(c, "ticktick", "tasks", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// @Summary      Sync from TickTick
// @Tags         TickTick
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  services.SyncResult
// @Failure      409  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /sync [post]
func (h *IntegrationsHandler) Sync(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := h.sync.Sync(c.Request.Context(), userID)
	if err != nil {
		writeError(c, "sync", "run", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
