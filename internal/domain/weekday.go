package domain

import (
	"strings"
	"time"
)

// WeekdaySet 曜日の集合（time.Weekday をビット位置とする）
type WeekdaySet uint8

// weekOrder 月曜始まりの曜日順
var weekOrder = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// NewWeekdaySet 指定した曜日からなる集合を作成
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.Add(d)
	}
	return s
}

// Add 曜日を追加した集合を返す
func (s WeekdaySet) Add(d time.Weekday) WeekdaySet {
	if d < time.Sunday || d > time.Saturday {
		return s
	}
	return s | 1<<uint(d)
}

// Has 曜日が含まれるか
func (s WeekdaySet) Has(d time.Weekday) bool {
	if d < time.Sunday || d > time.Saturday {
		return false
	}
	return s&(1<<uint(d)) != 0
}

// Len 含まれる曜日の数
func (s WeekdaySet) Len() int {
	n := 0
	for _, d := range weekOrder {
		if s.Has(d) {
			n++
		}
	}
	return n
}

// Weekdays 月曜始まりで曜日を列挙
func (s WeekdaySet) Weekdays() []time.Weekday {
	out := make([]time.Weekday, 0, 7)
	for _, d := range weekOrder {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

// ToNameMap 曜日名→真偽値のマップに変換（7曜日すべてのキーを持つ）
func (s WeekdaySet) ToNameMap() map[string]bool {
	out := make(map[string]bool, 7)
	for _, d := range weekOrder {
		out[d.String()] = s.Has(d)
	}
	return out
}

// Names 含まれる曜日名を月曜始まりで返す
func (s WeekdaySet) Names() []string {
	days := s.Weekdays()
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.String()
	}
	return out
}

// ParseWeekdayNames 曜日名→真偽値のマップから集合を作成
//
// 名前は大文字小文字を区別しない。不明な名前は無視する。
func ParseWeekdayNames(m map[string]bool) WeekdaySet {
	var s WeekdaySet
	for name, on := range m {
		if !on {
			continue
		}
		if d, ok := ParseWeekday(name); ok {
			s = s.Add(d)
		}
	}
	return s
}

// ParseWeekday 曜日名（"Monday" や "mon"）を time.Weekday に変換
func ParseWeekday(name string) (time.Weekday, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if len(n) < 3 {
		return 0, false
	}
	for _, d := range weekOrder {
		full := strings.ToLower(d.String())
		if n == full || n == full[:3] {
			return d, true
		}
	}
	return 0, false
}
