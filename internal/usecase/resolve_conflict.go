package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/k-negishi/chronolog/internal/conflict"
	"github.com/k-negishi/chronolog/internal/domain"
	"github.com/k-negishi/chronolog/internal/recurrence"
	"github.com/k-negishi/chronolog/internal/resolution"
)

const defaultHorizonDays = 14

// EventRepository 所有者ごとのイベントを取得・保存するポート
type EventRepository interface {
	FetchEvents(ctx context.Context, ownerID string) ([]domain.Event, error)
	SaveEvent(ctx context.Context, ownerID string, event domain.Event) error
}

// ScheduleSuggester 衝突した新規イベントの解決案を提案するポート
type ScheduleSuggester interface {
	ProposeResolutions(ctx context.Context, existing []domain.Event, newEvent domain.Event) ([]domain.CandidateSchedule, error)
}

// OfferPresenter 衝突内容と解決案をユーザーに提示するポート
type OfferPresenter interface {
	PresentOffers(ctx context.Context, ownerID string, candidate domain.Event, conflicts []domain.Event, offers []resolution.Offer) error
}

// CheckResult 衝突チェックの結果
type CheckResult struct {
	Conflicts []domain.Event
	Accepted  bool
	Reminder  *domain.Reminder
}

// ResolveConflictUseCase 新規イベントの衝突検出から解決案の提示・承認までを扱うユースケース
type ResolveConflictUseCase struct {
	repo      EventRepository
	suggester ScheduleSuggester
	presenter OfferPresenter
	detector  *conflict.Detector
	timezone  *time.Location
	horizon   int
	clock     func() time.Time

	mu       sync.Mutex
	requests map[string]uint64
	seq      uint64
}

// NewResolveConflictUseCase ユースケースを生成。presenter は nil でもよい
func NewResolveConflictUseCase(repo EventRepository, suggester ScheduleSuggester, presenter OfferPresenter, timezone *time.Location, horizonDays int) *ResolveConflictUseCase {
	if timezone == nil {
		timezone = time.Local
	}
	if horizonDays <= 0 {
		horizonDays = defaultHorizonDays
	}
	return &ResolveConflictUseCase{
		repo:      repo,
		suggester: suggester,
		presenter: presenter,
		detector:  conflict.NewDetector(timezone),
		timezone:  timezone,
		horizon:   horizonDays,
		clock:     time.Now,
		requests:  make(map[string]uint64),
	}
}

// Check 新規イベントを既存イベントと突き合わせ、衝突がなければそのまま保存する
func (uc *ResolveConflictUseCase) Check(ctx context.Context, ownerID string, candidate domain.Event) (CheckResult, error) {
	if err := candidate.Validate(); err != nil {
		return CheckResult{}, err
	}

	conflicts, _, err := uc.findConflicts(ctx, ownerID, candidate)
	if err != nil {
		return CheckResult{}, err
	}
	if len(conflicts) > 0 {
		log.Printf("「%s」が %d 件の予定と重なっています (owner=%s)", candidate.Title, len(conflicts), ownerID)
		return CheckResult{Conflicts: conflicts}, nil
	}

	if err := uc.repo.SaveEvent(ctx, ownerID, candidate); err != nil {
		log.Printf("イベントの保存に失敗しました: %v", err)
		return CheckResult{}, err
	}
	return CheckResult{Accepted: true, Reminder: uc.reminderFor(candidate)}, nil
}

// Resolve 衝突している新規イベントの解決案を取得し、重複を除いて提示する
//
// 同じ所有者・タイトルに対して後から別の要求が始まっていた場合、
// 結果は捨てて ErrStaleRequest を返す。衝突が無ければ提案サービスは呼ばず
// 空の解決案を返す。何も保存しない。
func (uc *ResolveConflictUseCase) Resolve(ctx context.Context, ownerID string, candidate domain.Event) ([]resolution.Offer, error) {
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	key := requestKey(ownerID, candidate.Title)
	token := uc.beginRequest(key)
	defer uc.endRequest(key, token)

	conflicts, sources, err := uc.findConflicts(ctx, ownerID, candidate)
	if err != nil {
		return nil, err
	}
	if len(conflicts) == 0 {
		log.Printf("「%s」は既存の予定と重なっていないため提案を省略しました (owner=%s)", candidate.Title, ownerID)
		return []resolution.Offer{}, nil
	}

	// 繰り返しの情報を保ったまま渡すため、展開前の既存イベントを送る
	candidates, err := uc.suggester.ProposeResolutions(ctx, sources, candidate)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if !uc.isLatest(key, token) {
		return nil, fmt.Errorf("「%s」の解決案は新しい要求に置き換えられました: %w", candidate.Title, domain.ErrStaleRequest)
	}
	if err != nil {
		log.Printf("解決案の取得に失敗しました: %v", err)
		return nil, err
	}

	offers, err := resolution.BuildOffers(candidates, candidate, uc.timezone)
	if err != nil {
		return nil, err
	}

	if uc.presenter != nil {
		if err := uc.presenter.PresentOffers(ctx, ownerID, candidate, conflicts, offers); err != nil {
			log.Printf("解決案の通知に失敗しました: %v", err)
			return nil, err
		}
	}
	return offers, nil
}

// Accept 選ばれた解決案のイベントを保存し、リマインダー情報を返す
func (uc *ResolveConflictUseCase) Accept(ctx context.Context, ownerID string, offer resolution.Offer) (*domain.Reminder, error) {
	event := offer.Resolved
	if err := event.Validate(); err != nil {
		return nil, err
	}
	if err := uc.repo.SaveEvent(ctx, ownerID, event); err != nil {
		log.Printf("イベントの保存に失敗しました: %v", err)
		return nil, err
	}
	return uc.reminderFor(event), nil
}

// findConflicts 候補と重なる既存イベントを返す
//
// conflicts は展開後の具体的な発生、sources はその展開元となった保存済みの
// イベントで、どちらも既存イベントの入力順に並ぶ。sources に重複は無い。
func (uc *ResolveConflictUseCase) findConflicts(ctx context.Context, ownerID string, candidate domain.Event) (conflicts, sources []domain.Event, err error) {
	existing, err := uc.repo.FetchEvents(ctx, ownerID)
	if err != nil {
		log.Printf("既存イベントの取得に失敗しました: %v", err)
		return nil, nil, err
	}

	windowStart, windowEnd := uc.window(candidate)
	occurrences := []domain.Event{candidate}
	if candidate.IsRecurring {
		occurrences = recurrence.Expand(candidate, windowStart, windowEnd)
	}

	conflicts = make([]domain.Event, 0)
	sources = make([]domain.Event, 0)
	for _, source := range existing {
		expanded := []domain.Event{source}
		if source.IsRecurring {
			expanded = recurrence.Expand(source, windowStart, windowEnd)
		}

		matched := false
		for _, occ := range occurrences {
			hits := uc.detector.ConflictingSubset(occ, expanded)
			if len(hits) == 0 {
				continue
			}
			conflicts = appendMissing(conflicts, hits)
			matched = true
		}
		if matched {
			sources = append(sources, source)
		}
	}
	return conflicts, sources, nil
}

// window 繰り返しを展開する期間（両端の日を含む）
//
// 単発の候補はその区間の日付（日をまたぐ発生を拾うため前日から）、
// 繰り返しの候補や日時の無い候補は今日0時から horizon 日分。
func (uc *ResolveConflictUseCase) window(candidate domain.Event) (time.Time, time.Time) {
	if !candidate.IsRecurring {
		if iv, ok := domain.EffectiveInterval(candidate, uc.timezone); ok {
			start := domain.StartOfDay(iv.Start.In(uc.timezone), uc.timezone).AddDate(0, 0, -1)
			return start, domain.StartOfDay(iv.End.In(uc.timezone), uc.timezone)
		}
	}
	start := domain.StartOfDay(uc.clock().In(uc.timezone), uc.timezone)
	return start, start.AddDate(0, 0, uc.horizon-1)
}

// appendMissing 開始時刻が同じ発生を重ねて追加しない
func appendMissing(dst, hits []domain.Event) []domain.Event {
	for _, h := range hits {
		dup := false
		for _, d := range dst {
			if d.ID == h.ID && d.Title == h.Title && sameStart(d, h) {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, h)
		}
	}
	return dst
}

func sameStart(a, b domain.Event) bool {
	switch {
	case a.StartTime != nil && b.StartTime != nil:
		return a.StartTime.Equal(*b.StartTime)
	case a.Date != nil && b.Date != nil:
		return a.Date.Equal(*b.Date)
	default:
		return a.StartTime == nil && b.StartTime == nil && a.Date == nil && b.Date == nil
	}
}

func (uc *ResolveConflictUseCase) reminderFor(e domain.Event) *domain.Reminder {
	reminder, ok := domain.ReminderFor(e, uc.timezone)
	if !ok {
		return nil
	}
	return &reminder
}

func requestKey(ownerID, title string) string {
	return ownerID + "\x00" + title
}

func (uc *ResolveConflictUseCase) beginRequest(key string) uint64 {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.seq++
	uc.requests[key] = uc.seq
	return uc.seq
}

func (uc *ResolveConflictUseCase) isLatest(key string, token uint64) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.requests[key] == token
}

func (uc *ResolveConflictUseCase) endRequest(key string, token uint64) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.requests[key] == token {
		delete(uc.requests, key)
	}
}
