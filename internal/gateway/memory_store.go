package gateway

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/k-negishi/chronolog/internal/domain"
)

// MemoryDocumentStore 所有者ごとのコレクションにキー/値レコードを保持するドキュメントストア
type MemoryDocumentStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	order       map[string][]string
}

// NewMemoryDocumentStore 空のドキュメントストアを作成
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{
		collections: make(map[string]map[string]map[string]any),
		order:       make(map[string][]string),
	}
}

// FetchEvents 所有者のレコードを登録順にイベントへ復元する
//
// 復元できないレコードはログに残して読み飛ばす。
func (s *MemoryDocumentStore) FetchEvents(_ context.Context, ownerID string) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[ownerID]
	events := make([]domain.Event, 0, len(docs))
	for _, id := range s.order[ownerID] {
		event, err := domain.FromRecord(docs[id])
		if err != nil {
			log.Printf("Warning: ドキュメント %s の読み込みをスキップしました: %v", id, err)
			continue
		}
		event.ID = id
		events = append(events, event)
	}
	return events, nil
}

// SaveEvent イベントをレコードとして保存する
func (s *MemoryDocumentStore) SaveEvent(_ context.Context, ownerID string, event domain.Event) error {
	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	s.Put(ownerID, id, domain.ToRecord(event))
	return nil
}

// Put レコードをそのまま書き込む
func (s *MemoryDocumentStore) Put(ownerID, id string, record map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[ownerID]
	if !ok {
		docs = make(map[string]map[string]any)
		s.collections[ownerID] = docs
	}
	if _, exists := docs[id]; !exists {
		s.order[ownerID] = append(s.order[ownerID], id)
	}
	docs[id] = record
}
