package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tomanage/internal/ai"
	"tomanage/internal/services"
)

type ChatHandler struct {
	assistant services.AssistantService
}

func NewChatHandler(assistant services.AssistantService) *ChatHandler {
	return &ChatHandler{assistant: assistant}
}

type chatRequest struct {
	Messages []ai.Message `json:"messages" binding:"required"`
}

// @Summary      Chat with the assistant
// @Description  Runs the conversation with the user's profile and the pattern tools
// @Tags         Assistant
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      chatRequest  true  "Conversation, last message from the user"
// @Success      200   {object}  ai.Result
// @Failure      400   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "chat", "send", err)
		return
	}
	res, err := h.assistant.Chat(c.Request.Context(), userID, req.Messages)
	if err != nil {
		writeError(c, "chat", "send", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
