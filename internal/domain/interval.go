package domain

import "time"

// Interval 半開区間 [Start, End)
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps 2つの区間が交差するか判定
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

// EffectiveInterval イベントが占有する区間を求める
//
// 優先順位は 終日 > 開始(+終了/所要時間) > 日付+所要時間。
// どれからも求まらない場合は false を返す。
func EffectiveInterval(e Event, loc *time.Location) (Interval, bool) {
	if loc == nil {
		loc = time.Local
	}

	if e.IsAllDay {
		anchor := e.Date
		if anchor == nil {
			anchor = e.StartTime
		}
		if anchor == nil {
			return Interval{}, false
		}
		start := StartOfDay(*anchor, loc)
		return Interval{Start: start, End: start.AddDate(0, 0, 1)}, true
	}

	if e.StartTime != nil {
		end, _ := e.ResolvedEnd()
		return Interval{Start: *e.StartTime, End: end}, true
	}

	if e.Date != nil {
		return Interval{Start: *e.Date, End: e.Date.Add(e.duration())}, true
	}

	return Interval{}, false
}

// StartOfDay 指定ロケーションでの当日0時を返す
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = t.Location()
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
