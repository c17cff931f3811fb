package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tomanage/internal/middleware"
	"tomanage/internal/models"
)

// currentUser reads the authenticated user id and answers 401 when it is missing.
func currentUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return userID, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrAuthState):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrNotConnected):
		return http.StatusConflict
	case errors.Is(err, models.ErrExternalService), errors.Is(err, models.ErrToolExecution):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// writeError logs the failure and answers with the status mapped from err.
func writeError(c *gin.Context, area, op string, err error) {
	status := statusFor(err)
	log.Printf("[%s][%s][err] status=%d %v", area, op, status, err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, area, op string, err error) {
	log.Printf("[%s][%s][bind][err] %v", area, op, err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// queryInt parses a non-negative integer query parameter.
func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return 0, false
	}
	return n, true
}
