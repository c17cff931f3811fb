// Package ai talks to the reasoning model: the Messages API client, the tool
// set the model may call, and the bounded tool loop.
package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"tomanage/internal/models"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	BlockText       = "text"
	BlockImage      = "image"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// ContentBlock is one element of a message body. Only the fields of its Type are set.
type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Source    *ImageSource    `json:"source,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

func TextMessage(role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{{Type: BlockText, Text: text}}}
}

// UnmarshalJSON accepts content either as a plain string or as a block list.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role = raw.Role
	m.Content = nil

	trimmed := strings.TrimSpace(string(raw.Content))
	switch {
	case trimmed == "" || trimmed == "null":
	case strings.HasPrefix(trimmed, `"`):
		var s string
		if err := json.Unmarshal(raw.Content, &s); err != nil {
			return err
		}
		m.Content = []ContentBlock{{Type: BlockText, Text: s}}
	default:
		if err := json.Unmarshal(raw.Content, &m.Content); err != nil {
			return err
		}
	}
	return nil
}

// ValidateConversation checks a caller-supplied conversation.
func ValidateConversation(msgs []Message) error {
	if len(msgs) == 0 {
		return fmt.Errorf("%w: at least one message is required", models.ErrValidation)
	}
	for i, m := range msgs {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return fmt.Errorf("%w: message %d has invalid role %q", models.ErrValidation, i, m.Role)
		}
		if len(m.Content) == 0 {
			return fmt.Errorf("%w: message %d is empty", models.ErrValidation, i)
		}
	}
	if msgs[len(msgs)-1].Role != RoleUser {
		return fmt.Errorf("%w: last message must come from the user", models.ErrValidation)
	}
	return nil
}

func joinText(blocks []ContentBlock) string {
	var parts []string
	for _, b := range blocks {
		if b.Type == BlockText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
