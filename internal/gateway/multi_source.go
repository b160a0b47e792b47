package gateway

import (
	"context"
	"fmt"
	"log"

	"github.com/k-negishi/chronolog/internal/domain"
)

// EventStore イベントの読み書きを行うストア
type EventStore interface {
	FetchEvents(ctx context.Context, ownerID string) ([]domain.Event, error)
	SaveEvent(ctx context.Context, ownerID string, event domain.Event) error
}

// EventFetcher 読み取り専用のイベント取得元
type EventFetcher interface {
	FetchEvents(ctx context.Context, ownerID string) ([]domain.Event, error)
}

// ExternalSource 外部の取得元と、その取得元で使う所有者IDの組
type ExternalSource struct {
	Name     string
	Fetcher  EventFetcher
	SourceID string // 空のときは呼び出し元の ownerID をそのまま使う
}

// MultiSourceRepository 主ストアに外部カレンダーの予定を合成するリポジトリ
//
// 保存は主ストアにのみ行う。外部取得元の失敗はログに残し、
// 主ストアの結果だけで処理を続ける。
type MultiSourceRepository struct {
	primary  EventStore
	external []ExternalSource
}

// NewMultiSourceRepository 主ストアと外部取得元からリポジトリを作成
func NewMultiSourceRepository(primary EventStore, external ...ExternalSource) *MultiSourceRepository {
	return &MultiSourceRepository{primary: primary, external: external}
}

// FetchEvents 主ストアのイベントに外部取得元のイベントを後ろに連結して返す
func (r *MultiSourceRepository) FetchEvents(ctx context.Context, ownerID string) ([]domain.Event, error) {
	events, err := r.primary.FetchEvents(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("既存イベントの取得に失敗しました: %w", err)
	}

	for _, src := range r.external {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := src.SourceID
		if id == "" {
			id = ownerID
		}
		extra, err := src.Fetcher.FetchEvents(ctx, id)
		if err != nil {
			log.Printf("Warning: %s からの取得をスキップしました: %v", src.Name, err)
			continue
		}
		events = append(events, extra...)
	}
	return events, nil
}

// SaveEvent 主ストアに保存
func (r *MultiSourceRepository) SaveEvent(ctx context.Context, ownerID string, event domain.Event) error {
	return r.primary.SaveEvent(ctx, ownerID, event)
}
