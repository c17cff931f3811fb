package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tomanage/internal/models"
)

const (
	ToolSavePattern    = "save_pattern"
	ToolGetPattern     = "get_pattern"
	ToolGetUserProfile = "get_user_profile"
	ToolSaveAnalytics  = "save_analytics"
	ToolGetAnalytics   = "get_analytics"
)

// ToolCall is a validated tool invocation. The concrete types below are the
// only implementations.
type ToolCall interface {
	ToolName() string
}

type SavePattern struct {
	PatternType models.PatternType `json:"patternType"`
	Data        models.Pattern     `json:"data"`
}

type GetPattern struct {
	PatternType models.PatternType `json:"patternType"`
}

type GetUserProfile struct{}

type SaveAnalytics struct {
	Entry models.AnalyticsEntry `json:"entry"`
}

type GetAnalytics struct {
	Limit int `json:"limit,omitempty"`
}

func (SavePattern) ToolName() string    { return ToolSavePattern }
func (GetPattern) ToolName() string     { return ToolGetPattern }
func (GetUserProfile) ToolName() string { return ToolGetUserProfile }
func (SaveAnalytics) ToolName() string  { return ToolSaveAnalytics }
func (GetAnalytics) ToolName() string   { return ToolGetAnalytics }

// ParseToolCall decodes and validates the model's input for the named tool.
func ParseToolCall(name string, input json.RawMessage) (ToolCall, error) {
	if len(bytes.TrimSpace(input)) == 0 {
		input = json.RawMessage("{}")
	}
	switch name {
	case ToolSavePattern:
		var c SavePattern
		if err := decode(input, &c); err != nil {
			return nil, err
		}
		if !c.PatternType.Valid() {
			return nil, fmt.Errorf("%w: unknown pattern type %q", models.ErrValidation, c.PatternType)
		}
		if c.Data == nil {
			return nil, fmt.Errorf("%w: data must be an object", models.ErrValidation)
		}
		return c, nil
	case ToolGetPattern:
		var c GetPattern
		if err := decode(input, &c); err != nil {
			return nil, err
		}
		if !c.PatternType.Valid() {
			return nil, fmt.Errorf("%w: unknown pattern type %q", models.ErrValidation, c.PatternType)
		}
		return c, nil
	case ToolGetUserProfile:
		return GetUserProfile{}, nil
	case ToolSaveAnalytics:
		var c SaveAnalytics
		if err := decode(input, &c); err != nil {
			return nil, err
		}
		if err := c.Entry.Validate(); err != nil {
			return nil, err
		}
		return c, nil
	case ToolGetAnalytics:
		var c GetAnalytics
		if err := decode(input, &c); err != nil {
			return nil, err
		}
		if c.Limit < 0 {
			return nil, fmt.Errorf("%w: limit must not be negative", models.ErrValidation)
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: unknown tool %q", models.ErrValidation, name)
}

func decode(input json.RawMessage, v any) error {
	if err := json.Unmarshal(input, v); err != nil {
		return fmt.Errorf("%w: invalid tool input: %v", models.ErrValidation, err)
	}
	return nil
}

// ToolBackend is the storage the tools read and write.
type ToolBackend interface {
	SavePattern(ctx context.Context, userID string, t models.PatternType, data models.Pattern) error
	GetPattern(ctx context.Context, userID string, t models.PatternType) (models.Pattern, bool, error)
	Profile(ctx context.Context, userID string) (models.UserProfile, error)
	SaveAnalytics(ctx context.Context, userID string, e models.AnalyticsEntry) error
	Analytics(ctx context.Context, userID string, limit int) ([]models.AnalyticsEntry, error)
}

type Dispatcher struct {
	backend ToolBackend
}

func NewDispatcher(backend ToolBackend) *Dispatcher {
	return &Dispatcher{backend: backend}
}

// Run parses and executes one tool call for the user.
func (d *Dispatcher) Run(ctx context.Context, userID, name string, input json.RawMessage) (any, error) {
	call, err := ParseToolCall(name, input)
	if err != nil {
		return nil, err
	}
	return d.Execute(ctx, userID, call)
}

func (d *Dispatcher) Execute(ctx context.Context, userID string, call ToolCall) (any, error) {
	switch c := call.(type) {
	case SavePattern:
		if err := d.backend.SavePattern(ctx, userID, c.PatternType, c.Data); err != nil {
			return nil, err
		}
		return map[string]any{
			"success": true,
			"message": fmt.Sprintf("Pattern '%s' saved successfully", c.PatternType),
		}, nil
	case GetPattern:
		data, found, err := d.backend.GetPattern(ctx, userID, c.PatternType)
		if err != nil {
			return nil, err
		}
		return map[string]any{"patternType": c.PatternType, "data": data, "found": found}, nil
	case GetUserProfile:
		return d.backend.Profile(ctx, userID)
	case SaveAnalytics:
		if err := d.backend.SaveAnalytics(ctx, userID, c.Entry); err != nil {
			return nil, err
		}
		return map[string]any{"success": true, "message": "Analytics entry saved successfully"}, nil
	case GetAnalytics:
		entries, err := d.backend.Analytics(ctx, userID, c.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"userId": userID, "entries": entries, "count": len(entries)}, nil
	}
	return nil, fmt.Errorf("%w: unsupported tool call %T", models.ErrToolExecution, call)
}

func patternTypeSchema(desc string) map[string]any {
	enum := make([]string, len(models.PatternTypes))
	for i, p := range models.PatternTypes {
		enum[i] = string(p)
	}
	return map[string]any{"type": "string", "enum": enum, "description": desc}
}

// Tools describes the tool set in the Messages API format.
func Tools() []ToolSpec {
	return []ToolSpec{
		{
			Name:        ToolSavePattern,
			Description: "Save a learned pattern about the user. Use this when you discover new patterns in their behavior, productivity, or preferences.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"patternType": patternTypeSchema("The type of pattern being saved"),
					"data":        map[string]any{"type": "object", "description": "The pattern data as a JSON object"},
				},
				"required": []string{"patternType", "data"},
			},
		},
		{
			Name:        ToolGetPattern,
			Description: "Retrieve a previously saved pattern about the user. Use this to check what you already know before making recommendations.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"patternType": patternTypeSchema("The type of pattern to retrieve"),
				},
				"required": []string{"patternType"},
			},
		},
		{
			Name:        ToolGetUserProfile,
			Description: "Get the complete user profile including preferences, current context, and all patterns.",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name:        ToolSaveAnalytics,
			Description: "Save task completion analytics. Use this to record when tasks are completed for learning patterns.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"entry": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"taskId":            map[string]any{"type": "string"},
							"completedAt":       map[string]any{"type": "string", "description": "ISO date string"},
							"timeOfDay":         map[string]any{"type": "string"},
							"dayOfWeek":         map[string]any{"type": "string"},
							"energyLevel":       map[string]any{"type": "string", "enum": []string{"high", "medium", "low"}},
							"contextType":       map[string]any{"type": "string"},
							"estimatedDuration": map[string]any{"type": "number", "description": "in minutes"},
							"actualDuration":    map[string]any{"type": "number", "description": "in minutes"},
						},
						"required": []string{"taskId", "completedAt", "timeOfDay", "dayOfWeek", "energyLevel", "contextType"},
					},
				},
				"required": []string{"entry"},
			},
		},
		{
			Name:        ToolGetAnalytics,
			Description: "Retrieve task completion analytics to learn from past patterns.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"limit": map[string]any{"type": "number", "description": "Number of recent entries to retrieve (optional)"},
				},
			},
		},
	}
}

func toolNames() string {
	specs := Tools()
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return strings.Join(names, ", ")
}
