package resolution

import (
	"fmt"
	"time"

	"github.com/k-negishi/chronolog/internal/domain"
)

// Offer ユーザーに提示する1つの解決案
type Offer struct {
	Label    string
	Schedule domain.CandidateSchedule
	// Resolved 新規イベントを解決案の時刻に置き換えたもの（承認時に保存される）
	Resolved domain.Event
}

// Dedupe 新規イベントの解決後の時刻が同じ解決案を取り除く
//
// 各解決案からタイトルが newEventTitle と一致する最初のイベントを探し、
// その (開始, 終了) をキーに先勝ちで残す。該当イベントが無い解決案は捨てる。
// 入力順は保持する。1件も残らない場合は ErrNoValidCandidates を返す。
func Dedupe(candidates []domain.CandidateSchedule, newEventTitle string, loc *time.Location) ([]domain.CandidateSchedule, error) {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]domain.CandidateSchedule, 0, len(candidates))

	for _, c := range candidates {
		_, iv, ok := findMember(c, newEventTitle, loc)
		if !ok {
			continue
		}
		key := dedupeKey(iv)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%d 件の解決案に %q の有効な配置がありません: %w", len(candidates), newEventTitle, domain.ErrNoValidCandidates)
	}
	return out, nil
}

// BuildOffers 重複排除した解決案を "Option N" として提示用にまとめる
//
// loc が nil の場合は time.Local として扱う。
func BuildOffers(candidates []domain.CandidateSchedule, newEvent domain.Event, loc *time.Location) ([]Offer, error) {
	if loc == nil {
		loc = time.Local
	}
	unique, err := Dedupe(candidates, newEvent.Title, loc)
	if err != nil {
		return nil, err
	}

	offers := make([]Offer, 0, len(unique))
	for i, c := range unique {
		_, iv, _ := findMember(c, newEvent.Title, loc)
		offers = append(offers, Offer{
			Label:    fmt.Sprintf("Option %d", i+1),
			Schedule: c,
			Resolved: newEvent.WithInterval(iv.Start.In(loc), iv.End.In(loc)),
		})
	}
	return offers, nil
}

// findMember タイトルが一致する最初のイベントとその区間を返す
func findMember(c domain.CandidateSchedule, title string, loc *time.Location) (domain.Event, domain.Interval, bool) {
	for _, e := range c {
		if e.Title != title {
			continue
		}
		iv, ok := domain.EffectiveInterval(e, loc)
		if !ok {
			return domain.Event{}, domain.Interval{}, false
		}
		return e, iv, true
	}
	return domain.Event{}, domain.Interval{}, false
}

func dedupeKey(iv domain.Interval) string {
	return iv.Start.UTC().Format(time.RFC3339) + "|" + iv.End.UTC().Format(time.RFC3339)
}
