package suggestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/k-negishi/chronolog/internal/domain"
)

// Completer 外部の補完サービスを呼び出すポート
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Adapter 衝突したイベントの代替スケジュールを提案サービスに問い合わせる
type Adapter struct {
	completer Completer
}

// NewAdapter 提案サービスアダプターを作成
func NewAdapter(completer Completer) *Adapter {
	return &Adapter{completer: completer}
}

// ProposeResolutions 既存イベントと新規イベントから解決案の候補を取得する
//
// リトライやタイムアウトは行わない。取り出せた解決案を返すだけで保存はしない。
func (a *Adapter) ProposeResolutions(ctx context.Context, existing []domain.Event, newEvent domain.Event) ([]domain.CandidateSchedule, error) {
	if existing == nil {
		existing = []domain.Event{}
	}
	existingJSON, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("既存イベントのJSON変換に失敗しました: %v: %w", err, domain.ErrEncoding)
	}
	newEventJSON, err := json.MarshalIndent(newEvent, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("新規イベントのJSON変換に失敗しました: %v: %w", err, domain.ErrEncoding)
	}

	content, err := a.completer.Complete(ctx, SystemPrompt(), buildUserPrompt(string(existingJSON), string(newEventJSON)))
	if err != nil {
		if errors.Is(err, domain.ErrService) || errors.Is(err, domain.ErrDecoding) {
			return nil, err
		}
		return nil, fmt.Errorf("提案サービスの呼び出しに失敗しました: %w: %w", err, domain.ErrService)
	}

	return ParseCandidates(content)
}

// ParseCandidates 応答テキストの各コードブロックを独立した解決案として読み込む
//
// 読み込めないブロックはログに残して読み飛ばす。1件も読み込めなければ ErrDecoding。
func ParseCandidates(content string) ([]domain.CandidateSchedule, error) {
	blocks := ExtractListBlocks(content)
	if len(blocks) == 0 {
		return nil, fmt.Errorf("応答にJSON配列のコードブロックがありません: %w", domain.ErrDecoding)
	}

	candidates := make([]domain.CandidateSchedule, 0, len(blocks))
	for i, block := range blocks {
		var events []domain.Event
		if err := json.Unmarshal([]byte(block), &events); err != nil {
			log.Printf("解決案 %d/%d の解析をスキップしました: %v", i+1, len(blocks), err)
			continue
		}
		candidates = append(candidates, domain.CandidateSchedule(events))
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%d 件のコードブロックをいずれも解析できませんでした: %w", len(blocks), domain.ErrDecoding)
	}
	return candidates, nil
}
