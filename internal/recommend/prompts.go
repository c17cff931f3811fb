package recommend

import (
	"fmt"
	"strings"

	"tomanage/internal/models"
)

const (
	NoTasksMessage  = "Great job! You have no incomplete tasks. Time to relax or plan your next goals."
	NoQuickWins     = "No quick wins available right now. All remaining tasks require more time or energy. Consider breaking down larger tasks into smaller chunks!"
	NoUrgentMessage = "Good news! No urgent & important tasks. Focus on important but not urgent work to stay ahead."
	NoDeepWork      = `No deep work tasks available. This might be a good time for:
- Quick wins and administrative tasks
- Planning and organizing
- Taking a break and recharging

Deep work requires high energy and significant time blocks. Save it for when you're fresh!`
)

// NoEnergyMatch is the energy strategy's answer when nothing fits the current level.
func NoEnergyMatch(level models.EnergyLevel) string {
	return fmt.Sprintf("No tasks match your current %s energy level. Consider taking a break or adjusting your energy with a walk, coffee, or quick win task.", level)
}

// Prompt renders the model prompt for a non-empty selection.
func Prompt(sel Selection, cctx models.CurrentContext) string {
	switch sel.Method {
	case MethodEnergy:
		return energyPrompt(sel, cctx)
	case MethodQuick:
		return quickPrompt(sel, cctx)
	case MethodEisenhower:
		return eisenhowerPrompt(sel, cctx)
	case MethodFocus:
		return focusPrompt(sel, cctx)
	}
	return smartPrompt(sel, cctx)
}

func smartPrompt(sel Selection, cctx models.CurrentContext) string {
	var b strings.Builder
	b.WriteString("You are a productivity assistant recommending the single best task to do next.\n\n")
	b.WriteString("CURRENT CONTEXT:\n")
	writeContext(&b, cctx)

	if w := sel.Workload; w != nil {
		status := "manageable"
		if w.IsOverloaded {
			status = "OVERLOADED"
		}
		b.WriteString("\nWORKLOAD:\n")
		fmt.Fprintf(&b, "- Incomplete tasks: %d\n", w.TotalIncompleteTasks)
		fmt.Fprintf(&b, "- Estimated hours: %dh\n", w.TotalEstimatedHours)
		fmt.Fprintf(&b, "- Critical tasks: %d\n", w.CriticalTasks)
		fmt.Fprintf(&b, "- Status: %s\n", status)
		b.WriteString("\nBY URGENCY:\n")
		for _, u := range models.Urgencies {
			fmt.Fprintf(&b, "- %s: %d\n", u, len(w.ByUrgency[u]))
		}
	}

	b.WriteString("\nTOP TASKS:\n")
	for i, t := range head(sel.Candidates, 10) {
		fmt.Fprintf(&b, "%d. %s\n   Priority: %s | Energy: %s | Duration: %d min\n   Context: %s | Urgency: %s\n",
			i+1, t.Title, t.Priority, t.EnergyRequired, t.EstimatedDuration, t.ContextType, t.Urgency)
		if t.DueDate != nil {
			fmt.Fprintf(&b, "   Due: %s\n", t.DueDate.Format("2006-01-02 15:04"))
		}
	}

	b.WriteString(`
Respond with:
**RECOMMENDED TASK:** the exact task title
**WHY NOW:** urgency, priority and how the task fits the current energy
**ESTIMATED TIME:** duration and when to finish
**ENERGY MATCH:** fit with the current energy level
**ALTERNATIVES:** two or three backups
**STRATEGIC ADVICE:** how to handle the rest of the workload
`)
	return b.String()
}

func energyPrompt(sel Selection, cctx models.CurrentContext) string {
	var b strings.Builder
	b.WriteString("You are a productivity assistant matching tasks to energy levels.\n\n")
	b.WriteString("CURRENT CONTEXT:\n")
	writeContext(&b, cctx)

	fmt.Fprintf(&b, "\nTasks matching %s energy (%d):\n", sel.Energy, len(sel.Candidates))
	for i, t := range sel.Candidates {
		fmt.Fprintf(&b, "%d. %s (%d min, %s priority)\n", i+1, t.Title, t.EstimatedDuration, t.Priority)
	}
	for _, level := range []models.EnergyLevel{models.EnergyLow, models.EnergyMedium, models.EnergyHigh} {
		bucket := sel.Buckets[level]
		fmt.Fprintf(&b, "\nTasks requiring %s energy (%d):\n", strings.ToUpper(string(level)), len(bucket))
		writeTitles(&b, head(bucket, 3))
	}

	fmt.Fprintf(&b, `
Respond with:
1. RECOMMENDED TASK: the task that best fits %s energy
2. WHY THIS TASK: the energy match
3. ENERGY ADVICE: managing energy for the rest of the day
4. ALTERNATIVES: one or two backups
`, sel.Energy)
	return b.String()
}

func quickPrompt(sel Selection, cctx models.CurrentContext) string {
	var b strings.Builder
	b.WriteString("You are a productivity coach helping the user build momentum with quick wins.\n\n")
	b.WriteString("CURRENT CONTEXT:\n")
	writeContext(&b, cctx)

	b.WriteString("\nQuick win tasks (30 min or less, low effort):\n")
	for i, t := range head(sel.Candidates, 7) {
		writeDetailed(&b, i, t)
	}
	b.WriteString(`
Respond with:
1. TOP QUICK WIN: the task to start right now
2. WHY START HERE: momentum and impact
3. MOMENTUM STRATEGY: a sequence of two or three quick wins
4. TIME ESTIMATE: total time for the sequence
`)
	return b.String()
}

func eisenhowerPrompt(sel Selection, cctx models.CurrentContext) string {
	var b strings.Builder
	b.WriteString("You are a strategic productivity advisor using the Eisenhower Matrix.\n\n")
	b.WriteString("CURRENT CONTEXT:\n")
	writeContext(&b, cctx)

	m := sel.Matrix
	if m == nil {
		empty := Eisenhower(nil)
		m = &empty
	}
	fmt.Fprintf(&b, "\nQUADRANT 1 - URGENT & IMPORTANT (Do First): %d tasks\n", len(m.UrgentImportant))
	for _, t := range head(m.UrgentImportant, 5) {
		fmt.Fprintf(&b, "- %s (%s, %s priority)\n", t.Title, t.Urgency, t.Priority)
	}
	fmt.Fprintf(&b, "\nQUADRANT 2 - IMPORTANT, NOT URGENT (Schedule): %d tasks\n", len(m.ImportantNotUrgent))
	for _, t := range head(m.ImportantNotUrgent, 5) {
		fmt.Fprintf(&b, "- %s (%s priority)\n", t.Title, t.Priority)
	}
	fmt.Fprintf(&b, "\nQUADRANT 3 - URGENT, NOT IMPORTANT (Delegate/Minimize): %d tasks\n", len(m.UrgentNotImportant))
	writeTitles(&b, head(m.UrgentNotImportant, 3))
	fmt.Fprintf(&b, "\nQUADRANT 4 - NEITHER (Eliminate): %d tasks\n", len(m.Neither))
	writeTitles(&b, head(m.Neither, 3))

	b.WriteString(`
Respond with:
1. RECOMMENDED FOCUS: which quadrant to work in now
2. SPECIFIC TASK: the exact task to start with
3. QUADRANT STRATEGY: balancing the quadrants today
4. WARNINGS: urgent and important work that needs attention
5. OPTIMIZATION: how to shrink quadrants 3 and 4
`)
	return b.String()
}

func focusPrompt(sel Selection, cctx models.CurrentContext) string {
	var b strings.Builder
	b.WriteString("You are a deep work coach planning focused, distraction-free sessions.\n\n")
	b.WriteString("CURRENT CONTEXT:\n")
	writeContext(&b, cctx)

	b.WriteString("\nDeep work tasks (60 min or more, high energy):\n")
	for i, t := range head(sel.Candidates, 5) {
		writeDetailed(&b, i, t)
	}
	b.WriteString(`
Respond with:
1. RECOMMENDED FOCUS SESSION: the best task for a 2-3 hour block
2. TIMING ADVICE: now or later
3. FOCUS PLAN: breaks and milestones
4. CONTEXT GROUPING: tasks to batch into the same session
5. PREPARATION: what to do before starting
`)
	return b.String()
}

// Fallback is the deterministic rationale used when the model is unavailable.
func Fallback(sel Selection) string {
	if len(sel.Pending) == 0 {
		return NoTasksMessage
	}
	switch sel.Method {
	case MethodEnergy:
		if sel.Task == nil {
			return NoEnergyMatch(sel.Energy)
		}
		t := sel.Task
		return fmt.Sprintf("**ENERGY MATCH:** %s\n\nThis task requires %s energy, matching your current level. Estimated time: %d minutes.",
			t.Title, t.EnergyRequired, t.EstimatedDuration)
	case MethodQuick:
		if sel.Task == nil {
			return NoQuickWins
		}
		t := sel.Task
		return fmt.Sprintf("**QUICK WIN:** %s\n\nThis task takes only %d minutes and requires %s energy. Perfect for building momentum!",
			t.Title, t.EstimatedDuration, t.EnergyRequired)
	case MethodEisenhower:
		if sel.Task == nil {
			return NoUrgentMessage
		}
		return fmt.Sprintf("**URGENT & IMPORTANT:** Focus on %q immediately. You have %d tasks in this critical quadrant.",
			sel.Task.Title, len(sel.Candidates))
	case MethodFocus:
		if sel.Task == nil {
			return NoDeepWork
		}
		t := sel.Task
		advice := "Consider scheduling this for when your energy is higher."
		if sel.Energy == models.EnergyHigh {
			advice = "Great time for deep work!"
		}
		return fmt.Sprintf("**DEEP WORK:** %s\n\nThis task requires %d minutes of focused work. Current energy: %s. %s",
			t.Title, t.EstimatedDuration, sel.Energy, advice)
	}

	t := sel.Task
	why := fmt.Sprintf("has %s priority", t.Priority)
	if t.Urgency != "" && t.Urgency != models.UrgencyNone {
		why = "is " + string(t.Urgency)
	}
	fit := "you can handle"
	if t.EnergyRequired == sel.Energy {
		fit = "matches your current energy level"
	}
	return fmt.Sprintf("**RECOMMENDED TASK:** %s\n\n**WHY NOW:** This task %s and requires %s energy, which %s.\n\n**ESTIMATED TIME:** ~%d minutes\n\nStart with this and build momentum!",
		t.Title, why, t.EnergyRequired, fit, t.EstimatedDuration)
}

func writeContext(b *strings.Builder, c models.CurrentContext) {
	fmt.Fprintf(b, "- Time: %s (%s)\n", c.CurrentTime, c.TimeOfDay)
	day := c.DayOfWeek
	if c.IsWeekend {
		day += " (weekend)"
	}
	fmt.Fprintf(b, "- Day: %s\n", day)
	work := "no"
	if c.IsWorkHours {
		work = "yes"
	}
	fmt.Fprintf(b, "- Work hours: %s\n", work)
	fmt.Fprintf(b, "- Energy: %s\n", c.Energy())
}

func writeTitles(b *strings.Builder, tasks []models.Task) {
	if len(tasks) == 0 {
		b.WriteString("None\n")
		return
	}
	for _, t := range tasks {
		fmt.Fprintf(b, "- %s\n", t.Title)
	}
}

func writeDetailed(b *strings.Builder, i int, t models.Task) {
	fmt.Fprintf(b, "%d. %s\n   Duration: %d min | Priority: %s | Energy: %s | Context: %s\n",
		i+1, t.Title, t.EstimatedDuration, t.Priority, t.EnergyRequired, t.ContextType)
	if t.Urgency != "" && t.Urgency != models.UrgencyNone {
		fmt.Fprintf(b, "   Urgency: %s\n", t.Urgency)
	}
}

func head(tasks []models.Task, n int) []models.Task {
	if len(tasks) > n {
		return tasks[:n]
	}
	return tasks
}
