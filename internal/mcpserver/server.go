// Package mcpserver exposes the assistant's tools, recommendations and the
// task list to MCP clients over stdio for a single configured user.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tomanage/internal/ai"
	"tomanage/internal/models"
	"tomanage/internal/recommend"
	"tomanage/internal/services"
)

const (
	ToolRecommendTask = "recommend_task"
	ToolListTasks     = "list_tasks"
)

type SavePatternArgs struct {
	PatternType string         `json:"patternType" jsonschema:"required,enum=productivity_by_hour,enum=task_completion_patterns,enum=energy_patterns,enum=context_preferences,enum=learned_behaviors,description=The type of pattern being saved"`
	Data        map[string]any `json:"data" jsonschema:"required,description=The pattern data as a JSON object"`
}

type GetPatternArgs struct {
	PatternType string `json:"patternType" jsonschema:"required,enum=productivity_by_hour,enum=task_completion_patterns,enum=energy_patterns,enum=context_preferences,enum=learned_behaviors,description=The type of pattern to retrieve"`
}

type GetUserProfileArgs struct{}

type SaveAnalyticsArgs struct {
	Entry models.AnalyticsEntry `json:"entry" jsonschema:"required,description=One task completion"`
}

type GetAnalyticsArgs struct {
	Limit int `json:"limit" jsonschema:"description=Number of recent entries to retrieve"`
}

type RecommendTaskArgs struct {
	Method string `json:"method" jsonschema:"default=smart,enum=smart,enum=energy,enum=quick,enum=eisenhower,enum=focus,description=Recommendation strategy"`
}

type ListTasksArgs struct {
	IncludeCompleted bool `json:"includeCompleted" jsonschema:"description=Also return completed tasks"`
}

type Server struct {
	userID string
	tools  *ai.Dispatcher
	tasks  services.TaskService
	recs   services.RecommendationService
	mcp    *server.MCPServer
}

func New(userID, version string, tools *ai.Dispatcher, tasks services.TaskService, recs services.RecommendationService) *Server {
	s := &Server{
		userID: userID,
		tools:  tools,
		tasks:  tasks,
		recs:   recs,
		mcp:    server.NewMCPServer("tomanage", version, server.WithToolCapabilities(true)),
	}
	s.register()
	return s
}

func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio blocks serving requests on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Printf("[mcp] serving user=%s on stdio", s.userID)
	return server.ServeStdio(s.mcp)
}

func (s *Server) register() {
	descriptions := make(map[string]string)
	for _, spec := range ai.Tools() {
		descriptions[spec.Name] = spec.Description
	}

	s.mcp.AddTool(mcp.NewTool(ai.ToolSavePattern,
		mcp.WithDescription(descriptions[ai.ToolSavePattern]),
		mcp.WithInputSchema[SavePatternArgs](),
	), s.dispatch(ai.ToolSavePattern))
	s.mcp.AddTool(mcp.NewTool(ai.ToolGetPattern,
		mcp.WithDescription(descriptions[ai.ToolGetPattern]),
		mcp.WithInputSchema[GetPatternArgs](),
	), s.dispatch(ai.ToolGetPattern))
	s.mcp.AddTool(mcp.NewTool(ai.ToolGetUserProfile,
		mcp.WithDescription(descriptions[ai.ToolGetUserProfile]),
		mcp.WithInputSchema[GetUserProfileArgs](),
	), s.dispatch(ai.ToolGetUserProfile))
	s.mcp.AddTool(mcp.NewTool(ai.ToolSaveAnalytics,
		mcp.WithDescription(descriptions[ai.ToolSaveAnalytics]),
		mcp.WithInputSchema[SaveAnalyticsArgs](),
	), s.dispatch(ai.ToolSaveAnalytics))
	s.mcp.AddTool(mcp.NewTool(ai.ToolGetAnalytics,
		mcp.WithDescription(descriptions[ai.ToolGetAnalytics]),
		mcp.WithInputSchema[GetAnalyticsArgs](),
	), s.dispatch(ai.ToolGetAnalytics))

	s.mcp.AddTool(mcp.NewTool(ToolRecommendTask,
		mcp.WithDescription("Recommend the task to work on right now using one of the strategies: smart, energy, quick, eisenhower or focus."),
		mcp.WithInputSchema[RecommendTaskArgs](),
	), s.recommendTask)
	s.mcp.AddTool(mcp.NewTool(ToolListTasks,
		mcp.WithDescription("List the user's tasks with their inferred urgency, energy, context and duration."),
		mcp.WithInputSchema[ListTasksArgs](),
	), s.listTasks)
}

// dispatch forwards the raw arguments to the shared tool dispatcher.
func (s *Server) dispatch(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		out, err := s.tools.Run(ctx, s.userID, name, raw)
		if err != nil {
			log.Printf("[mcp][%s][err] %v", name, err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(out)
	}
}

func (s *Server) recommendTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args RecommendTaskArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	method, err := recommend.ParseMethod(args.Method)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.recs.Recommend(ctx, s.userID, method)
	if err != nil {
		log.Printf("[mcp][%s][err] %v", ToolRecommendTask, err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(rec.Text), nil
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args ListTasksArgs
	_ = req.BindArguments(&args)

	tasks, err := s.tasks.List(ctx, s.userID)
	if err != nil {
		log.Printf("[mcp][%s][err] %v", ToolListTasks, err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !args.IncludeCompleted {
		tasks = models.Incomplete(tasks)
	}
	if len(tasks) == 0 {
		return mcp.NewToolResultText("No tasks."), nil
	}

	var b strings.Builder
	for i, t := range tasks {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		fmt.Fprintf(&b, "%d. [%s] %s (id: %s, priority: %s, urgency: %s, energy: %s, context: %s, ~%dmin)\n",
			i+1, mark, t.Title, t.ID, t.Priority, t.Urgency, t.EnergyRequired, t.ContextType, t.EstimatedDuration)
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
