package recurrence

import (
	"log"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/k-negishi/chronolog/internal/domain"
)

// MaxOccurrences 1テンプレートあたりの展開上限
const MaxOccurrences = 5000

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// Expand 曜日指定の繰り返しテンプレートを期間内の具体的なイベントに展開する
//
// 期間は windowStart の日から windowEnd の日までを両端含みで扱い、
// 日付は windowStart のロケーションで判定する。前提を満たさない
// テンプレートはエラーにせず空のスライスを返す。
func Expand(template domain.Event, windowStart, windowEnd time.Time) []domain.Event {
	if !template.IsRecurring || template.DaysOfWeek.Len() == 0 || windowEnd.Before(windowStart) {
		return []domain.Event{}
	}

	loc := windowStart.Location()
	tod, ok := timeOfDay(template, loc)
	if !ok {
		return []domain.Event{}
	}

	firstDay := domain.StartOfDay(windowStart, loc)
	lastDay := domain.StartOfDay(windowEnd, loc)

	byDay := make([]rrule.Weekday, 0, 7)
	for _, d := range template.DaysOfWeek.Weekdays() {
		byDay = append(byDay, rruleWeekdays[d])
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Wkst:      rrule.MO,
		Byweekday: byDay,
		Dtstart:   firstDay.Add(tod.start),
		Until:     lastDay.AddDate(0, 0, 1).Add(-time.Nanosecond),
	})
	if err != nil {
		log.Printf("繰り返しルールの作成に失敗しました (title=%s): %v", template.Title, err)
		return []domain.Event{}
	}

	out := make([]domain.Event, 0)
	next := rule.Iterator()
	for {
		occStart, ok := next()
		if !ok {
			break
		}
		if len(out) >= MaxOccurrences {
			log.Printf("繰り返しの展開を上限 %d 件で打ち切りました (title=%s)", MaxOccurrences, template.Title)
			break
		}
		out = append(out, occurrence(template, occStart, tod))
	}
	return out
}

// ExpandAll 繰り返しイベントは期間内に展開し、単発イベントはそのまま返す
func ExpandAll(events []domain.Event, windowStart, windowEnd time.Time) []domain.Event {
	out := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if !e.IsRecurring {
			out = append(out, e)
			continue
		}
		out = append(out, Expand(e, windowStart, windowEnd)...)
	}
	return out
}

// clock テンプレートの0時からのオフセット
type clock struct {
	start time.Duration
	end   time.Duration
}

// timeOfDay テンプレートから開始・終了の時刻成分を取り出す
func timeOfDay(template domain.Event, loc *time.Location) (clock, bool) {
	if template.IsAllDay {
		return clock{start: 0, end: 24 * time.Hour}, true
	}

	anchor := template.StartTime
	if anchor == nil {
		anchor = template.Date
	}
	if anchor == nil {
		return clock{}, false
	}

	start := sinceMidnight(*anchor, loc)
	var end time.Duration
	if template.StartTime != nil && template.EndTime != nil {
		end = sinceMidnight(*template.EndTime, loc)
		if end <= start {
			end += 24 * time.Hour
		}
	} else {
		probe := template
		probe.StartTime = anchor
		probe.EndTime = nil
		e, _ := probe.ResolvedEnd()
		end = start + e.Sub(*anchor)
	}
	return clock{start: start, end: end}, true
}

func sinceMidnight(t time.Time, loc *time.Location) time.Duration {
	return t.In(loc).Sub(domain.StartOfDay(t, loc))
}

func occurrence(template domain.Event, occStart time.Time, tod clock) domain.Event {
	day := domain.StartOfDay(occStart, occStart.Location())
	start := day.Add(tod.start)
	end := day.Add(tod.end)

	out := template.Clone()
	out.Date = &day
	out.StartTime = &start
	out.EndTime = &end
	out.IsRecurring = false
	out.DaysOfWeek = 0
	return out
}
