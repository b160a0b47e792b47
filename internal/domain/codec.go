package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// wireEvent 提案サービスとやり取りするJSON表現
type wireEvent struct {
	Title        string          `json:"title"`
	Date         *time.Time      `json:"date,omitempty"`
	StartTime    *time.Time      `json:"startTime,omitempty"`
	EndTime      *time.Time      `json:"endTime,omitempty"`
	Duration     int             `json:"duration"`
	Description  []string        `json:"description"`
	IsRecurring  bool            `json:"isRecurring"`
	DaysOfWeek   map[string]bool `json:"daysOfWeek,omitempty"`
	IsAllDay     bool            `json:"isAllDay"`
	AllowSplit   bool            `json:"isSplitable"`
	AllowOverlap bool            `json:"allowOverlap"`
	Priority     string          `json:"priority"`
	Deadline     *time.Time      `json:"deadline,omitempty"`
}

// wireEventIn デコード用。必須項目の有無を判定するためタイトルのみポインタで受ける
type wireEventIn struct {
	wireEvent
	Title *string `json:"title"`
}

// MarshalJSON 日時をISO-8601(RFC3339)で出力する
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{
		Title:        e.Title,
		Date:         e.Date,
		StartTime:    e.StartTime,
		EndTime:      e.EndTime,
		Duration:     e.DurationSeconds,
		Description:  e.Notes,
		IsRecurring:  e.IsRecurring,
		IsAllDay:     e.IsAllDay,
		AllowSplit:   e.AllowSplit,
		AllowOverlap: e.AllowOverlap,
		Priority:     e.Priority.Label(),
		Deadline:     e.Deadline,
	}
	if w.Description == nil {
		w.Description = []string{}
	}
	if e.IsRecurring || e.DaysOfWeek.Len() > 0 {
		w.DaysOfWeek = e.DaysOfWeek.ToNameMap()
	}
	return json.Marshal(w)
}

// UnmarshalJSON 提案サービスが返したイベントを読み込む
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEventIn
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Title == nil {
		return fmt.Errorf("title が含まれていません")
	}
	if w.Duration < 0 {
		return fmt.Errorf("duration が負の値です: %d", w.Duration)
	}

	*e = Event{
		Title:           *w.Title,
		Date:            w.Date,
		StartTime:       w.StartTime,
		EndTime:         w.EndTime,
		DurationSeconds: w.Duration,
		Notes:           w.Description,
		IsRecurring:     w.IsRecurring,
		DaysOfWeek:      ParseWeekdayNames(w.DaysOfWeek),
		IsAllDay:        w.IsAllDay,
		AllowSplit:      w.AllowSplit,
		AllowOverlap:    w.AllowOverlap,
		Priority:        ParsePriority(w.Priority),
		Deadline:        w.Deadline,
	}
	return nil
}
