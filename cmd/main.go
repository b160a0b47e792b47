package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
	_ "time/tzdata"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/k-negishi/chronolog/internal/config"
	"github.com/k-negishi/chronolog/internal/domain"
	"github.com/k-negishi/chronolog/internal/gateway"
	"github.com/k-negishi/chronolog/internal/resolution"
	"github.com/k-negishi/chronolog/internal/suggestion"
	"github.com/k-negishi/chronolog/internal/usecase"
)

// 実行できる操作
const (
	ActionCheck   = "check"
	ActionResolve = "resolve"
	ActionAccept  = "accept"
)

// LambdaEvent Lambda実行時のイベント構造体
type LambdaEvent struct {
	Action  string       `json:"action"`
	OwnerID string       `json:"ownerId"`
	Event   domain.Event `json:"event"`
}

// LambdaResponse Lambda実行結果のレスポンス
type LambdaResponse struct {
	StatusCode int               `json:"statusCode"`
	Message    string            `json:"message"`
	Conflicts  []domain.Event    `json:"conflicts,omitempty"`
	Offers     []offerResponse   `json:"offers,omitempty"`
	Reminder   *reminderResponse `json:"reminder,omitempty"`
}

// offerResponse 解決案。accept には Event をそのまま送り返す
type offerResponse struct {
	Label    string         `json:"label"`
	Event    domain.Event   `json:"event"`
	Schedule []domain.Event `json:"schedule"`
}

type reminderResponse struct {
	Title     string     `json:"title"`
	StartTime time.Time  `json:"startTime"`
	IsAllDay  bool       `json:"isAllDay"`
	Priority  string     `json:"priority"`
	LeadTimes []leadTime `json:"leadTimes"`
}

type leadTime struct {
	ID string    `json:"id"`
	At time.Time `json:"at"`
}

// application 起動時に一度だけ組み立てる依存関係
type application struct {
	useCase *usecase.ResolveConflictUseCase
	clock   func() time.Time
}

// handler Lambda関数のメインハンドラー
func (app *application) handler(ctx context.Context, event LambdaEvent) (LambdaResponse, error) {
	if event.OwnerID == "" {
		return LambdaResponse{StatusCode: 400, Message: "ownerIdが指定されていません"}, nil
	}

	switch event.Action {
	case ActionCheck:
		result, err := app.useCase.Check(ctx, event.OwnerID, event.Event)
		if err != nil {
			return errorResponse("衝突チェックエラー", err)
		}
		if !result.Accepted {
			return LambdaResponse{
				StatusCode: 409,
				Message:    fmt.Sprintf("%d 件の予定と重なっています", len(result.Conflicts)),
				Conflicts:  result.Conflicts,
			}, nil
		}
		return LambdaResponse{StatusCode: 200, Message: "登録完了", Reminder: app.reminderResponse(result.Reminder)}, nil

	case ActionResolve:
		offers, err := app.useCase.Resolve(ctx, event.OwnerID, event.Event)
		if err != nil {
			return errorResponse("解決案の取得エラー", err)
		}
		if len(offers) == 0 {
			return LambdaResponse{StatusCode: 200, Message: "重なっている予定はありません"}, nil
		}
		return LambdaResponse{StatusCode: 200, Message: fmt.Sprintf("解決案 %d 件", len(offers)), Offers: toOfferResponses(offers)}, nil

	case ActionAccept:
		reminder, err := app.useCase.Accept(ctx, event.OwnerID, resolution.Offer{Resolved: event.Event})
		if err != nil {
			return errorResponse("解決案の登録エラー", err)
		}
		return LambdaResponse{StatusCode: 200, Message: "登録完了", Reminder: app.reminderResponse(reminder)}, nil

	default:
		return LambdaResponse{StatusCode: 400, Message: fmt.Sprintf("不明なactionです: %q", event.Action)}, nil
	}
}

// errorResponse エラー種別に応じたステータスを返す。サーバー側の失敗のみ error を返す
func errorResponse(message string, err error) (LambdaResponse, error) {
	log.Printf("%s: %v", message, err)
	switch {
	case errors.Is(err, domain.ErrInvalidEvent):
		return LambdaResponse{StatusCode: 400, Message: err.Error()}, nil
	case errors.Is(err, domain.ErrStaleRequest):
		return LambdaResponse{StatusCode: 409, Message: err.Error()}, nil
	case errors.Is(err, domain.ErrNoValidCandidates):
		return LambdaResponse{StatusCode: 422, Message: err.Error()}, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return LambdaResponse{StatusCode: 504, Message: message}, err
	case errors.Is(err, domain.ErrService), errors.Is(err, domain.ErrDecoding):
		return LambdaResponse{StatusCode: 502, Message: message}, err
	default:
		return LambdaResponse{StatusCode: 500, Message: message}, err
	}
}

func toOfferResponses(offers []resolution.Offer) []offerResponse {
	out := make([]offerResponse, 0, len(offers))
	for _, o := range offers {
		out = append(out, offerResponse{Label: o.Label, Event: o.Resolved, Schedule: o.Schedule})
	}
	return out
}

func (app *application) reminderResponse(r *domain.Reminder) *reminderResponse {
	if r == nil {
		return nil
	}
	resp := &reminderResponse{
		Title:     r.Title,
		StartTime: r.StartTime,
		IsAllDay:  r.IsAllDay,
		Priority:  r.Priority,
		LeadTimes: []leadTime{},
	}
	for _, lt := range r.LeadTimes(app.clock()) {
		resp.LeadTimes = append(resp.LeadTimes, leadTime{ID: lt.ID, At: lt.At})
	}
	return resp
}

// newApplication 設定から各クライアントとユースケースを組み立てる
func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	loc := cfg.Location()

	repo, err := newRepository(ctx, cfg, loc)
	if err != nil {
		return nil, err
	}

	completer := gateway.NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	suggester := suggestion.NewAdapter(completer)

	var presenter usecase.OfferPresenter
	if cfg.LineEnabled() {
		presenter = gateway.NewLINEOfferPresenter(cfg.LineChannelAccessToken, cfg.LineUserID, loc)
	}

	return &application{
		useCase: usecase.NewResolveConflictUseCase(repo, suggester, presenter, loc, cfg.HorizonDays),
		clock:   time.Now,
	}, nil
}

// newRepository 保存先のストアを作り、Google認証情報があればカレンダーの予定を合成する
//
// STORE=google は SQLite を保存先にして Google Calendar の予定を読み込む構成で、
// 認証情報が必須。それ以外の STORE でも認証情報があれば同じように合成する。
func newRepository(ctx context.Context, cfg *config.Config, loc *time.Location) (usecase.EventRepository, error) {
	if cfg.Store == config.StoreGoogle && cfg.GoogleCredentials == "" {
		return nil, fmt.Errorf("STORE=googleにはGOOGLE_CREDENTIALSが必要です")
	}

	primary, err := newPrimaryStore(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.GoogleCredentials == "" {
		return primary, nil
	}
	if _, err := cfg.GetGoogleCredentialsJSON(); err != nil {
		return nil, err
	}

	calendarRepo, err := gateway.NewGoogleCalendarRepository(ctx, []byte(cfg.GoogleCredentials), loc, cfg.HorizonDays)
	if err != nil {
		return nil, fmt.Errorf("google Calendar初期化エラー: %w", err)
	}
	return gateway.NewMultiSourceRepository(primary, gateway.ExternalSource{
		Name:     "google-calendar",
		Fetcher:  calendarRepo,
		SourceID: cfg.CalendarID,
	}), nil
}

// newPrimaryStore 新しい予定を保存するストアを作成
func newPrimaryStore(cfg *config.Config) (gateway.EventStore, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return gateway.NewMemoryDocumentStore(), nil
	case config.StoreSQLite, config.StoreGoogle:
		// Google Calendar は読み取り専用のため、保存先は SQLite
		db, err := gateway.OpenSQLite(cfg.DatabaseURL, cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("データベースの初期化に失敗しました: %w", err)
		}
		return gateway.NewSQLiteEventStore(db), nil
	default:
		return nil, fmt.Errorf("STOREの値が不正です: %s", cfg.Store)
	}
}

func main() {
	// 設定を読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定読み込みエラー: %v", err)
	}

	app, err := newApplication(context.Background(), cfg)
	if err != nil {
		log.Fatalf("初期化エラー: %v", err)
	}

	lambda.Start(app.handler)
}
