package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"tomanage/internal/models"
)

// MaxIterations bounds model calls in one tool loop.
const MaxIterations = 10

type Result struct {
	Text       string `json:"text"`
	StopReason string `json:"stopReason"`
	Usage      Usage  `json:"usage"`
	Iterations int    `json:"iterations"`
}

// Assistant runs conversations against the model, executing tool calls on
// behalf of one user.
type Assistant struct {
	model Model
	tools *Dispatcher
}

func NewAssistant(model Model, tools *Dispatcher) *Assistant {
	return &Assistant{model: model, tools: tools}
}

// Run sends the conversation and executes tool calls until the model stops
// asking for them. Tools are offered only when the assistant has a dispatcher
// and withTools is set.
func (a *Assistant) Run(ctx context.Context, userID, system string, msgs []Message, withTools bool, maxTokens int) (Result, error) {
	conversation := append([]Message(nil), msgs...)
	req := Request{System: system, MaxTokens: maxTokens}
	useTools := withTools && a.tools != nil
	if useTools {
		req.Tools = Tools()
	}

	var res Result
	for res.Iterations < MaxIterations {
		res.Iterations++
		req.Messages = conversation

		resp, err := a.model.Create(ctx, req)
		if err != nil {
			return Result{}, err
		}
		res.Usage.InputTokens += resp.Usage.InputTokens
		res.Usage.OutputTokens += resp.Usage.OutputTokens

		if resp.StopReason != "tool_use" || !useTools {
			res.Text = joinText(resp.Content)
			res.StopReason = resp.StopReason
			return res, nil
		}

		conversation = append(conversation, Message{Role: RoleAssistant, Content: resp.Content})
		var results []ContentBlock
		for _, block := range resp.Content {
			if block.Type != BlockToolUse {
				continue
			}
			results = append(results, a.runTool(ctx, userID, block))
		}
		if len(results) == 0 {
			return Result{}, fmt.Errorf("%w: tool_use response without tool calls", models.ErrToolExecution)
		}
		conversation = append(conversation, Message{Role: RoleUser, Content: results})
	}
	return Result{}, fmt.Errorf("%w: maximum tool iterations (%d) reached", models.ErrToolExecution, MaxIterations)
}

func (a *Assistant) runTool(ctx context.Context, userID string, block ContentBlock) ContentBlock {
	out := ContentBlock{Type: BlockToolResult, ToolUseID: block.ID}

	value, err := a.tools.Run(ctx, userID, block.Name, block.Input)
	if err == nil {
		var data []byte
		data, err = json.Marshal(value)
		if err == nil {
			out.Content = string(data)
			return out
		}
	}

	log.Printf("[ai][tool][err] user=%s tool=%s err=%v", userID, block.Name, err)
	msg := err.Error()
	if errors.Is(err, models.ErrValidation) {
		msg = fmt.Sprintf("%s (available tools: %s)", msg, toolNames())
	}
	data, _ := json.Marshal(map[string]string{"error": msg})
	out.Content = string(data)
	out.IsError = true
	return out
}
