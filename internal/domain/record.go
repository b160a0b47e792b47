package domain

import (
	"fmt"
	"strings"
	"time"
)

// ToRecord ドキュメントストアへ保存するキー/値マップに変換
func ToRecord(e Event) map[string]any {
	record := map[string]any{
		"title":        e.Title,
		"date":         cloneTime(e.Date),
		"startTime":    cloneTime(e.StartTime),
		"endTime":      cloneTime(e.EndTime),
		"duration":     e.DurationSeconds,
		"description":  strings.Join(e.Notes, "\n"),
		"isRecurring":  e.IsRecurring,
		"daysOfWeek":   nil,
		"isAllDay":     e.IsAllDay,
		"allowSplit":   e.AllowSplit,
		"allowOverlap": e.AllowOverlap,
		"priority":     e.Priority.String(),
		"deadline":     cloneTime(e.Deadline),
	}
	if e.IsRecurring || e.DaysOfWeek.Len() > 0 {
		record["daysOfWeek"] = e.DaysOfWeek.ToNameMap()
	}
	return record
}

// FromRecord ドキュメントストアのキー/値マップからイベントを復元
func FromRecord(record map[string]any) (Event, error) {
	title, _ := record["title"].(string)
	if strings.TrimSpace(title) == "" {
		return Event{}, fmt.Errorf("title が設定されていないレコードです: %w", ErrInvalidEvent)
	}

	e := Event{Title: title}

	var err error
	if e.Date, err = recordTime(record, "date"); err != nil {
		return Event{}, err
	}
	if e.StartTime, err = recordTime(record, "startTime"); err != nil {
		return Event{}, err
	}
	if e.EndTime, err = recordTime(record, "endTime"); err != nil {
		return Event{}, err
	}
	if e.Deadline, err = recordTime(record, "deadline"); err != nil {
		return Event{}, err
	}

	e.DurationSeconds = recordInt(record["duration"])
	if desc, ok := record["description"].(string); ok && desc != "" {
		e.Notes = strings.Split(desc, "\n")
	}
	e.IsRecurring = recordBool(record["isRecurring"])
	e.IsAllDay = recordBool(record["isAllDay"])
	e.AllowSplit = recordBool(record["allowSplit"])
	e.AllowOverlap = recordBool(record["allowOverlap"])

	switch days := record["daysOfWeek"].(type) {
	case map[string]bool:
		e.DaysOfWeek = ParseWeekdayNames(days)
	case map[string]any:
		converted := make(map[string]bool, len(days))
		for k, v := range days {
			converted[k] = recordBool(v)
		}
		e.DaysOfWeek = ParseWeekdayNames(converted)
	}

	priority, _ := record["priority"].(string)
	e.Priority = ParsePriority(priority)

	return e, nil
}

func recordTime(record map[string]any, key string) (*time.Time, error) {
	switch v := record[key].(type) {
	case nil:
		return nil, nil
	case *time.Time:
		return cloneTime(v), nil
	case time.Time:
		return &v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("%s の解析に失敗しました: %v: %w", key, err, ErrInvalidEvent)
		}
		return &t, nil
	default:
		return nil, fmt.Errorf("%s の型が不正です (%T): %w", key, v, ErrInvalidEvent)
	}
}

func recordInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func recordBool(v any) bool {
	b, _ := v.(bool)
	return b
}
