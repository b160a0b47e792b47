package gateway

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/k-negishi/chronolog/internal/domain"
)

// maxResultsPerFetch 1回の取得で読み込むイベントの上限
const maxResultsPerFetch = 250

// EventsProvider Google Calendar APIからイベント一覧を取得するインターフェース
type EventsProvider interface {
	ListEvents(calendarID, timeMin, timeMax string) ([]*calendar.Event, error)
}

// calendarServiceProvider calendar.Service を使った EventsProvider の実装
type calendarServiceProvider struct {
	service *calendar.Service
}

func (p *calendarServiceProvider) ListEvents(calendarID, timeMin, timeMax string) ([]*calendar.Event, error) {
	events, err := p.service.Events.List(calendarID).
		TimeMin(timeMin).
		TimeMax(timeMax).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxResultsPerFetch).
		Do()
	if err != nil {
		return nil, err
	}
	return events.Items, nil
}

// GoogleCalendarRepository Google Calendarを既存イベントの取得元とする読み取り専用リポジトリ
//
// ownerID はカレンダーIDとして扱う。
type GoogleCalendarRepository struct {
	provider EventsProvider
	timezone *time.Location
	horizon  time.Duration
	clock    func() time.Time
}

// NewGoogleCalendarRepository サービスアカウント認証でGoogle Calendarリポジトリを作成
func NewGoogleCalendarRepository(ctx context.Context, credentialsJSON []byte, timezone *time.Location, horizonDays int) (*GoogleCalendarRepository, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("google認証情報の読み込みに失敗しました: %v", err)
	}

	service, err := calendar.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("google Calendar APIサービスの作成に失敗しました: %v", err)
	}

	return NewGoogleCalendarRepositoryWithProvider(&calendarServiceProvider{service: service}, timezone, horizonDays), nil
}

// NewGoogleCalendarRepositoryWithProvider 任意の EventsProvider でリポジトリを作成
func NewGoogleCalendarRepositoryWithProvider(provider EventsProvider, timezone *time.Location, horizonDays int) *GoogleCalendarRepository {
	if timezone == nil {
		timezone = time.Local
	}
	if horizonDays <= 0 {
		horizonDays = 14
	}
	return &GoogleCalendarRepository{
		provider: provider,
		timezone: timezone,
		horizon:  time.Duration(horizonDays) * 24 * time.Hour,
		clock:    time.Now,
	}
}

// FetchEvents 今日から取得期間分の予定を取得
func (r *GoogleCalendarRepository) FetchEvents(_ context.Context, ownerID string) ([]domain.Event, error) {
	// 開始時刻: 今日の00:00:00 - inclusive
	start := domain.StartOfDay(r.clock(), r.timezone)
	// 終了時刻: 取得期間の最終日の翌日00:00:00 - exclusive
	end := start.Add(r.horizon)

	items, err := r.provider.ListEvents(ownerID, start.Format(time.RFC3339), end.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("カレンダーイベントの取得に失敗しました: %v", err)
	}

	events := make([]domain.Event, 0, len(items))
	for _, item := range items {
		event, err := r.convertToEvent(item)
		if err != nil {
			log.Printf("Warning: イベントの変換をスキップしました (id=%s): %v", item.Id, err)
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// SaveEvent Google Calendarへの書き込みは行わない
func (r *GoogleCalendarRepository) SaveEvent(_ context.Context, ownerID string, _ domain.Event) error {
	return fmt.Errorf("カレンダー %s は読み取り専用です", ownerID)
}

// convertToEvent Google Calendar APIのイベントをドメインエンティティに変換
func (r *GoogleCalendarRepository) convertToEvent(event *calendar.Event) (domain.Event, error) {
	out := domain.Event{
		ID:    event.Id,
		Title: event.Summary,
	}

	// タイトルが空の場合は「（無題）」に設定
	if out.Title == "" {
		out.Title = "（無題）"
	}
	if event.Description != "" {
		out.Notes = strings.Split(event.Description, "\n")
	}
	// 「予定なし」として登録されたイベントは他の予定との重複を許す
	out.AllowOverlap = event.Transparency == "transparent"

	if event.Start == nil || event.End == nil {
		return domain.Event{}, fmt.Errorf("開始時刻が設定されていません")
	}

	switch {
	case event.Start.DateTime != "":
		start, err := time.Parse(time.RFC3339, event.Start.DateTime)
		if err != nil {
			return domain.Event{}, fmt.Errorf("開始時刻の解析に失敗しました: %v", err)
		}
		start = start.In(r.timezone)
		out.StartTime = &start
	case event.Start.Date != "":
		day, err := time.ParseInLocation("2006-01-02", event.Start.Date, r.timezone)
		if err != nil {
			return domain.Event{}, fmt.Errorf("開始日の解析に失敗しました: %v", err)
		}
		out.Date = &day
		out.IsAllDay = true
	default:
		return domain.Event{}, fmt.Errorf("開始時刻が設定されていません")
	}

	if !out.IsAllDay {
		if event.End.DateTime == "" {
			return domain.Event{}, fmt.Errorf("終了時刻が設定されていません")
		}
		end, err := time.Parse(time.RFC3339, event.End.DateTime)
		if err != nil {
			return domain.Event{}, fmt.Errorf("終了時刻の解析に失敗しました: %v", err)
		}
		end = end.In(r.timezone)
		out.EndTime = &end
		out.DurationSeconds = int(end.Sub(*out.StartTime) / time.Second)
	}

	applyExtendedProperties(&out, event.ExtendedProperties)
	return out, nil
}

// applyExtendedProperties 非公開の拡張プロパティからスケジューリング属性を読み込む
func applyExtendedProperties(e *domain.Event, props *calendar.EventExtendedProperties) {
	if props == nil || props.Private == nil {
		return
	}
	p := props.Private
	if v, ok := p["priority"]; ok {
		e.Priority = domain.ParsePriority(v)
	}
	if v, err := strconv.ParseBool(p["allowOverlap"]); err == nil {
		e.AllowOverlap = v
	}
	if v, err := strconv.ParseBool(p["allowSplit"]); err == nil {
		e.AllowSplit = v
	}
}
