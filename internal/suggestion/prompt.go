package suggestion

import "fmt"

// SolutionCount 提案サービスに要求する解決案の数
const SolutionCount = 3

// systemPrompt 提案サービスに守らせる配置ルール（優先順）
var systemPrompt = fmt.Sprintf(`You are an expert event scheduler. Resolve the conflicts between the new event and the existing events.
Give %d distinct solutions. Return each solution as its own fenced JSON array containing ALL events after resolving conflicts.
Follow these rules in order of importance:
1. Respect event priorities: higher priority events take precedence and keep their placement.
2. All event deadlines must be met.
3. Existing recurring event patterns must be maintained.
4. Only events with allowOverlap=true may overlap other events.
5. Only events with isSplitable=true may be broken into smaller segments.
6. Schedule events at the earliest feasible time slot that satisfies all constraints.
Keep every field of every event; only change startTime, endTime, date and duration where needed.
Dates must be ISO-8601.`, SolutionCount)

// buildUserPrompt 既存イベントと新規イベントを埋め込んだユーザープロンプト
func buildUserPrompt(existingJSON, newEventJSON string) string {
	return fmt.Sprintf(`Existing events: %s
New event to add: %s
Return %d JSON arrays, each containing ALL events with conflicts resolved.`, existingJSON, newEventJSON, SolutionCount)
}

// SystemPrompt 固定の配置ルールを返す
func SystemPrompt() string {
	return systemPrompt
}
