package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tomanage/internal/models"
)

const inferenceRules = `# INFERENCE RULES
- Priority HIGH: urgent, ASAP, critical, deadline, interview
- Priority MEDIUM: should, need to, moderate timeline
- Priority LOW: maybe, sometime, when I can

- Energy HIGH: implement, build, design, architecture, refactor, complex
- Energy MEDIUM: review, update, write, plan, organize
- Energy LOW: read, check, schedule, quick, simple

- Category work: coding, PR, work
- Category interview: interview, leetcode, DSA, system design
- Category personal: home, family, errands, shopping
- Category learning: learn, study, course, research`

// RecommendationSystem is the system prompt for tool-enabled recommendations.
// profile is the formatted user profile.
func RecommendationSystem(profile string) string {
	return `You are my personal AI productivity assistant with deep knowledge of my work patterns.

You have tools to save and retrieve patterns about me. Use them:
- get_user_profile() for my full profile
- get_pattern(type) to check what you already know
- save_pattern(type, data) when you learn something new

` + profile + `

Recommend ONE task I should work on RIGHT NOW, based on everything above and the
task analysis in my message. Keep the recommended task exactly as selected unless
it is clearly impossible right now, and be specific to me.`
}

const RecommendationRequest = "Please recommend the best task for me to work on right now."

func ConversationalSystem(profile string) string {
	return `You are an intelligent task assistant that helps me plan and create well-structured tasks from conversation.

Use get_user_profile() to understand my work context.

` + profile + `

# YOUR ROLE
1. Extract task information from messages
2. Infer reasonable defaults when information is missing
3. Ask a single clarifying question only when truly ambiguous
4. Be conversational, not robotic

` + inferenceRules + `

Do not ask about duration, energy or tags; infer them.`
}

const ExtractionSystem = `Extract todos from the input. Analyze the text or image and infer as much as possible.

Return ONLY a JSON array of todos. Each todo has:
{
  "title": "clear, actionable title starting with a verb",
  "description": "additional context from the message",
  "priority": "high|medium|low",
  "category": "work|personal|interview|learning",
  "energyRequired": "high|medium|low",
  "estimatedDuration": 30,
  "contextType": "frontend|backend|interview|meeting|review|admin",
  "tags": ["auto", "generated"],
  "dueDate": "ISO date if mentioned, null otherwise"
}

` + inferenceRules + `

Return ONLY the JSON array, no markdown, no explanation.`

// ExtractedTask is one item of the extraction response.
type ExtractedTask struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Priority          string   `json:"priority"`
	Category          string   `json:"category"`
	EnergyRequired    string   `json:"energyRequired"`
	EstimatedDuration float64  `json:"estimatedDuration"`
	ContextType       string   `json:"contextType"`
	Tags              []string `json:"tags"`
	DueDate           *string  `json:"dueDate"`
}

// Task converts the item to a task draft. Unknown enum values are dropped so
// enrichment can fill them.
func (e ExtractedTask) Task() models.Task {
	t := models.Task{
		Title:             strings.TrimSpace(e.Title),
		Description:       strings.TrimSpace(e.Description),
		Priority:          models.Priority(strings.ToLower(e.Priority)),
		Category:          models.Category(strings.ToLower(e.Category)),
		EnergyRequired:    models.EnergyLevel(strings.ToLower(e.EnergyRequired)),
		ContextType:       models.ContextType(strings.ToLower(e.ContextType)),
		EstimatedDuration: int(e.EstimatedDuration),
		Tags:              e.Tags,
	}
	if !t.Priority.Valid() {
		t.Priority = ""
	}
	if !t.Category.Valid() {
		t.Category = ""
	}
	if !t.EnergyRequired.Valid() {
		t.EnergyRequired = ""
	}
	if !t.ContextType.Valid() {
		t.ContextType = ""
	}
	if t.EstimatedDuration < 0 {
		t.EstimatedDuration = 0
	}
	if e.DueDate != nil {
		t.DueDate = parseDue(*e.DueDate)
	}
	return t
}

func parseDue(s string) *time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if v, err := time.Parse(layout, s); err == nil {
			return &v
		}
	}
	return nil
}

// ParseExtraction decodes the model's JSON array, tolerating code fences.
// Items without a title are skipped and counted.
func ParseExtraction(text string) ([]ExtractedTask, int, error) {
	cleaned := StripFences(text)
	var items []ExtractedTask
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, 0, fmt.Errorf("%w: failed to parse todos from model response: %v", models.ErrExternalService, err)
	}
	out := make([]ExtractedTask, 0, len(items))
	skipped := 0
	for _, it := range items {
		if strings.TrimSpace(it.Title) == "" {
			skipped++
			continue
		}
		out = append(out, it)
	}
	return out, skipped, nil
}

// StripFences removes a surrounding markdown code fence.
func StripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	if i := strings.Index(cleaned, "\n"); i >= 0 {
		cleaned = cleaned[i+1:]
	} else {
		cleaned = strings.TrimPrefix(cleaned, "```")
	}
	if i := strings.LastIndex(cleaned, "```"); i >= 0 {
		cleaned = cleaned[:i]
	}
	return strings.TrimSpace(cleaned)
}
