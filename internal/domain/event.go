package domain

import (
	"fmt"
	"strings"
	"time"
)

// defaultDurationSeconds 終了時刻も所要時間も無いイベントに割り当てる長さ
const defaultDurationSeconds = 3600

// Event カレンダー上の予定を表すドメインエンティティ
//
// 新規入力された候補イベントも保存済みの既存イベントも同じ形で扱う。
// IsRecurring が true の場合、StartTime/EndTime は各日に適用する時刻テンプレート。
type Event struct {
	ID              string
	Title           string
	Date            *time.Time
	StartTime       *time.Time
	EndTime         *time.Time
	DurationSeconds int
	Notes           []string
	IsRecurring     bool
	DaysOfWeek      WeekdaySet
	IsAllDay        bool
	AllowSplit      bool
	AllowOverlap    bool
	Priority        Priority
	Deadline        *time.Time
}

// CandidateSchedule 提案サービスが返す1つの解決案（既存イベント＋再配置された新規イベント）
type CandidateSchedule []Event

// Validate ユーザー入力から組み立てたイベントの整合性を確認
func (e Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("タイトルが設定されていません: %w", ErrInvalidEvent)
	}
	if e.DurationSeconds < 0 {
		return fmt.Errorf("所要時間が負の値です (%d): %w", e.DurationSeconds, ErrInvalidEvent)
	}
	if e.IsRecurring && e.DaysOfWeek.Len() == 0 {
		return fmt.Errorf("繰り返しイベントに曜日が設定されていません: %w", ErrInvalidEvent)
	}
	return nil
}

// ResolvedEnd 終了時刻を返す。無い場合は開始時刻と所要時間から導出する
func (e Event) ResolvedEnd() (time.Time, bool) {
	if e.StartTime == nil {
		return time.Time{}, false
	}
	if e.EndTime != nil {
		return *e.EndTime, true
	}
	return e.StartTime.Add(e.duration()), true
}

// WithInterval 開始・終了時刻だけを差し替えたコピーを返す
//
// タイトル、メモ、各種フラグはそのまま保持される。
func (e Event) WithInterval(start, end time.Time) Event {
	out := e.Clone()
	out.StartTime = &start
	out.EndTime = &end
	out.DurationSeconds = int(end.Sub(start) / time.Second)
	if out.Date != nil {
		day := StartOfDay(start, start.Location())
		out.Date = &day
	}
	return out
}

// Clone ポインタ・スライスを共有しないコピーを返す
func (e Event) Clone() Event {
	out := e
	out.Date = cloneTime(e.Date)
	out.StartTime = cloneTime(e.StartTime)
	out.EndTime = cloneTime(e.EndTime)
	out.Deadline = cloneTime(e.Deadline)
	if e.Notes != nil {
		out.Notes = append([]string(nil), e.Notes...)
	}
	return out
}

func (e Event) duration() time.Duration {
	if e.DurationSeconds > 0 {
		return time.Duration(e.DurationSeconds) * time.Second
	}
	return defaultDurationSeconds * time.Second
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
