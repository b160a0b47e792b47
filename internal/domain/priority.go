package domain

import "strings"

// Priority イベントの優先度
type Priority int

const (
	PriorityMedium Priority = iota
	PriorityHigh
	PriorityLow
)

// ParsePriority 文字列を優先度に変換（大文字小文字を区別せず、不明な値は medium）
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// String 保存用の表現 ("high" / "medium" / "low")
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "medium"
	}
}

// Label 提案サービスに渡す表現 ("High" / "Medium" / "Low")
func (p Priority) Label() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityLow:
		return "Low"
	default:
		return "Medium"
	}
}
