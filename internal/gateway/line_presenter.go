package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/k-negishi/chronolog/internal/domain"
	"github.com/k-negishi/chronolog/internal/resolution"
)

// LINEOfferPresenter 衝突内容と解決案をLINE Messaging APIで通知する
type LINEOfferPresenter struct {
	channelAccessToken string
	userID             string
	httpClient         *http.Client
	endpoint           string
	timezone           *time.Location
}

// lineMessage LINE APIに送信するメッセージ構造体
type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// linePushRequest LINE Push APIのリクエスト構造体
type linePushRequest struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

// lineErrorResponse LINE APIのエラーレスポンス構造体
type lineErrorResponse struct {
	Message string `json:"message"`
	Details []struct {
		Message  string `json:"message"`
		Property string `json:"property"`
	} `json:"details"`
}

// NewLINEOfferPresenter LINE通知クライアントを作成
func NewLINEOfferPresenter(channelAccessToken, userID string, timezone *time.Location) *LINEOfferPresenter {
	if timezone == nil {
		timezone = time.Local
	}
	return &LINEOfferPresenter{
		channelAccessToken: channelAccessToken,
		userID:             userID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		endpoint: "https://api.line.me/v2/bot/message/push",
		timezone: timezone,
	}
}

// PresentOffers 衝突している予定と解決案の一覧を送信
func (p *LINEOfferPresenter) PresentOffers(ctx context.Context, _ string, candidate domain.Event, conflicts []domain.Event, offers []resolution.Offer) error {
	message := p.buildOfferMessage(candidate, conflicts, offers)
	return p.sendPushMessage(ctx, message)
}

// buildOfferMessage 解決案提示用のメッセージを構築
func (p *LINEOfferPresenter) buildOfferMessage(candidate domain.Event, conflicts []domain.Event, offers []resolution.Offer) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("「%s」が %d 件の予定と重なっています:\n", candidate.Title, len(conflicts)))
	for _, e := range conflicts {
		p.appendEventToMessage(&b, e)
	}

	b.WriteString("\n")
	if len(offers) == 0 {
		b.WriteString("解決案はありません\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("解決案 (%d件):\n", len(offers)))
	for _, offer := range offers {
		b.WriteString(offer.Label + ": ")
		p.appendEventToMessage(&b, offer.Resolved)
	}
	return b.String()
}

// appendEventToMessage イベントをメッセージに追加
func (p *LINEOfferPresenter) appendEventToMessage(b *strings.Builder, e domain.Event) {
	iv, ok := domain.EffectiveInterval(e, p.timezone)
	switch {
	case !ok:
		b.WriteString(fmt.Sprintf("🔸 %s (日時未定)\n", e.Title))
	case e.IsAllDay:
		start := iv.Start.In(p.timezone)
		b.WriteString(fmt.Sprintf("🔸 %s(%s) %s (終日)\n", start.Format("1/2"), getWeekdayJapanese(start.Weekday()), e.Title))
	default:
		start := iv.Start.In(p.timezone)
		end := iv.End.In(p.timezone)
		b.WriteString(fmt.Sprintf("🔸 %s(%s) %s〜%s %s\n",
			start.Format("1/2"), getWeekdayJapanese(start.Weekday()),
			start.Format("15:04"), end.Format("15:04"), e.Title))
	}
}

// sendPushMessage LINE Push APIでメッセージを送信
func (p *LINEOfferPresenter) sendPushMessage(ctx context.Context, message string) error {
	requestBody, err := json.Marshal(linePushRequest{
		To:       p.userID,
		Messages: []lineMessage{{Type: "text", Text: message}},
	})
	if err != nil {
		return fmt.Errorf("リクエストボディのJSON変換に失敗しました: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.channelAccessToken))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("LINE APIリクエストの送信に失敗しました: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errorResponse lineErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errorResponse); err != nil {
			return fmt.Errorf("LINE API呼び出しが失敗しました (Status: %d, レスポンス解析不可: %v)", resp.StatusCode, err)
		}

		errorDetails := errorResponse.Message
		if len(errorResponse.Details) > 0 {
			errorDetails += fmt.Sprintf(" (詳細: %s)", errorResponse.Details[0].Message)
		}
		return fmt.Errorf("LINE API呼び出しが失敗しました (Status: %d): %s", resp.StatusCode, errorDetails)
	}

	return nil
}

// getWeekdayJapanese 曜日を日本語に変換
func getWeekdayJapanese(weekday time.Weekday) string {
	weekdays := map[time.Weekday]string{
		time.Sunday:    "日",
		time.Monday:    "月",
		time.Tuesday:   "火",
		time.Wednesday: "水",
		time.Thursday:  "木",
		time.Friday:    "金",
		time.Saturday:  "土",
	}
	return weekdays[weekday]
}
