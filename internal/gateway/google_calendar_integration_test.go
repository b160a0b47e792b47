//go:build integration

package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-negishi/chronolog/internal/config"
)

func TestFetchEvents_Integration(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("インテグレーションテストの実行には.envファイルに設定された有効な認証情報が必要です: %v", err)
	}
	require.NotEmpty(t, cfg.GoogleCredentials, "GOOGLE_CREDENTIALSが設定されていません")
	require.NotEmpty(t, cfg.CalendarID, "CALENDAR_IDが設定されていません")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := NewGoogleCalendarRepository(ctx, []byte(cfg.GoogleCredentials), cfg.Location(), cfg.HorizonDays)
	require.NoError(t, err, "カレンダーのクライアント作成に失敗しました")

	t.Run("Google Calendarから実際にイベントを取得する", func(t *testing.T) {
		// 取得件数はカレンダーの状態に依存するため、エラーなく完了することだけを確認する
		_, err := repo.FetchEvents(ctx, cfg.CalendarID)
		assert.NoError(t, err, "FetchEventsで予期せぬエラーが発生しました")
	})
}
