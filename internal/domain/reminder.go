package domain

import "time"

// Reminder 確定したイベントのリマインダー登録に必要な情報
type Reminder struct {
	Title     string
	StartTime time.Time
	IsAllDay  bool
	Priority  string
}

// LeadTime リマインダーを発火する時刻とその識別子
type LeadTime struct {
	ID string
	At time.Time
}

// ReminderFor 確定イベントからリマインダー情報を作る。開始時刻が求まらない場合は false
func ReminderFor(e Event, loc *time.Location) (Reminder, bool) {
	interval, ok := EffectiveInterval(e, loc)
	if !ok {
		return Reminder{}, false
	}
	return Reminder{
		Title:     e.Title,
		StartTime: interval.Start,
		IsAllDay:  e.IsAllDay,
		Priority:  e.Priority.String(),
	}, true
}

// LeadTimes now より後に発火すべき通知時刻を返す
//
// 終日イベントは当日0時、時刻指定イベントは1日前・1時間前・15分前。
func (r Reminder) LeadTimes(now time.Time) []LeadTime {
	var out []LeadTime
	if r.IsAllDay {
		midnight := StartOfDay(r.StartTime, r.StartTime.Location())
		if midnight.After(now) {
			out = append(out, LeadTime{ID: "allDay", At: midnight})
		}
		return out
	}

	offsets := []struct {
		id     string
		before time.Duration
	}{
		{"1day", 24 * time.Hour},
		{"1hour", time.Hour},
		{"15min", 15 * time.Minute},
	}
	for _, o := range offsets {
		at := r.StartTime.Add(-o.before)
		if at.After(now) {
			out = append(out, LeadTime{ID: o.id, At: at})
		}
	}
	return out
}
