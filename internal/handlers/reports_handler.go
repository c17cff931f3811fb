package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tomanage/internal/services"
)

type ReportHandler struct {
	service services.ReportService
}

func NewReportHandler(service services.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// @Summary      Task report
// @Description  PDF with the workload summary and the Eisenhower matrix
// @Tags         Tasks
// @Produce      application/pdf
// @Security     BearerAuth
// @Success      200
// @Router       /tasks/report [get]
func (h *ReportHandler) TaskReport(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	data, err := h.service.TaskReport(c.Request.Context(), userID)
	if err != nil {
		writeError(c, "report", "tasks", err)
		return
	}
	name := fmt.Sprintf("tasks-%s.pdf", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/pdf", data)
}
