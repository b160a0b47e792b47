package conflict

import (
	"time"

	"github.com/k-negishi/chronolog/internal/domain"
)

// Detector 指定ロケーションで終日イベントの区間を解釈する衝突判定器
type Detector struct {
	loc *time.Location
}

// NewDetector 衝突判定器を作成
func NewDetector(loc *time.Location) *Detector {
	if loc == nil {
		loc = time.Local
	}
	return &Detector{loc: loc}
}

// HasConflict 候補イベントが既存イベントのいずれかと衝突するか
func (d *Detector) HasConflict(candidate domain.Event, existing []domain.Event) bool {
	return HasConflict(candidate, existing, d.loc)
}

// ConflictingSubset 候補イベントと衝突する既存イベントを入力順で返す
func (d *Detector) ConflictingSubset(candidate domain.Event, existing []domain.Event) []domain.Event {
	return ConflictingSubset(candidate, existing, d.loc)
}

// Overlaps 2つのイベントが衝突するか判定
//
// どちらかが重複を許可している場合、または区間が求まらない場合は衝突しない。
func Overlaps(a, b domain.Event, loc *time.Location) bool {
	if a.AllowOverlap || b.AllowOverlap {
		return false
	}
	ai, ok := domain.EffectiveInterval(a, loc)
	if !ok {
		return false
	}
	bi, ok := domain.EffectiveInterval(b, loc)
	if !ok {
		return false
	}
	return ai.Overlaps(bi)
}

// HasConflict 候補イベントが既存イベントのいずれかと衝突するか
func HasConflict(candidate domain.Event, existing []domain.Event, loc *time.Location) bool {
	for _, e := range existing {
		if Overlaps(candidate, e, loc) {
			return true
		}
	}
	return false
}

// ConflictingSubset 候補イベントと衝突する既存イベントを入力順で返す
func ConflictingSubset(candidate domain.Event, existing []domain.Event, loc *time.Location) []domain.Event {
	out := make([]domain.Event, 0)
	for _, e := range existing {
		if Overlaps(candidate, e, loc) {
			out = append(out, e)
		}
	}
	return out
}
