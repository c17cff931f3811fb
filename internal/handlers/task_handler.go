package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tomanage/internal/models"
	"tomanage/internal/services"
)

type TaskHandler struct {
	service   services.TaskService
	assistant services.AssistantService
}

func NewTaskHandler(service services.TaskService, assistant services.AssistantService) *TaskHandler {
	return &TaskHandler{service: service, assistant: assistant}
}

type createTaskRequest struct {
	Title             string             `json:"title" binding:"required"`
	Description       string             `json:"description"`
	Priority          models.Priority    `json:"priority"`
	Tags              []string           `json:"tags"`
	DueDate           *time.Time         `json:"dueDate"`
	EnergyRequired    models.EnergyLevel `json:"energyRequired"`
	EstimatedDuration int                `json:"estimatedDuration"`
	ContextType       models.ContextType `json:"contextType"`
	Category          models.Category    `json:"category"`
}

func (r createTaskRequest) task() models.Task {
	return models.Task{
		Title:             r.Title,
		Description:       r.Description,
		Priority:          r.Priority,
		Tags:              r.Tags,
		DueDate:           r.DueDate,
		EnergyRequired:    r.EnergyRequired,
		EstimatedDuration: r.EstimatedDuration,
		ContextType:       r.ContextType,
		Category:          r.Category,
	}
}

// @Summary      List tasks
// @Description  Returns the local task list, syncing from TickTick first when the last sync is stale
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Task
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	tasks, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, "task", "list", err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// @Summary      Create task
// @Description  Creates a task; missing energy, context and duration are inferred
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        task  body      createTaskRequest  true  "Task"
// @Success      201   {object}  models.Task
// @Failure      400   {object}  map[string]string
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "task", "create", err)
		return
	}
	task, err := h.service.Create(c.Request.Context(), userID, req.task())
	if err != nil {
		writeError(c, "task", "create", err)
		return
	}
	log.Printf("[task][create] user=%s id=%s urgency=%s energy=%s", userID, task.ID, task.Urgency, task.EnergyRequired)
	c.JSON(http.StatusCreated, task)
}

// @Summary      Update task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string            true  "Task ID"
// @Param        patch  body      models.TaskPatch  true  "Fields to change"
// @Success      200    {object}  models.Task
// @Failure      400    {object}  map[string]string
// @Failure      404    {object}  map[string]string
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var patch models.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "task", "update", err)
		return
	}
	task, err := h.service.Update(c.Request.Context(), userID, c.Param("id"), patch)
	if err != nil {
		writeError(c, "task", "update", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// @Summary      Toggle completion
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  models.Task
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id}/toggle [post]
func (h *TaskHandler) Toggle(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	task, err := h.service.ToggleComplete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, "task", "toggle", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// @Summary      Delete task
// @Tags         Tasks
// @Security     BearerAuth
// @Param        id  path  string  true  "Task ID"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeError(c, "task", "delete", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary      Extract tasks
// @Description  Asks the model to pull todos out of free text or an image and creates them
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input  body      services.ExtractInput  true  "Text and/or base64 image"
// @Success      201    {object}  services.ExtractResult
// @Failure      400    {object}  map[string]string
// @Failure      502    {object}  map[string]string
// @Router       /tasks/extract [post]
func (h *TaskHandler) Extract(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var in services.ExtractInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "task", "extract", err)
		return
	}
	res, err := h.assistant.ExtractTasks(c.Request.Context(), userID, in)
	if err != nil {
		writeError(c, "task", "extract", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
