package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/k-negishi/chronolog/internal/domain"
)

const (
	defaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultOpenAIModel    = "gpt-4o"
	openAITemperature     = 0.3
	openAIMaxTokens       = 5428
)

// OpenAICompleter OpenAI Chat Completions APIを使用した suggestion.Completer の実装
type OpenAICompleter struct {
	apiKey     string
	model      string
	httpClient *http.Client
	endpoint   string
}

// chatMessage Chat Completions APIのメッセージ構造体
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest Chat Completions APIのリクエスト構造体
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// chatResponse Chat Completions APIのレスポンス構造体
type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// openAIErrorResponse OpenAI APIのエラーレスポンス構造体
type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewOpenAICompleter OpenAIクライアントを作成
//
// タイムアウトは呼び出し側の context で制御する。
func NewOpenAICompleter(apiKey, model string) *OpenAICompleter {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAICompleter{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
		endpoint:   defaultOpenAIEndpoint,
	}
}

// WithEndpoint 接続先を差し替えたクライアントを返す
func (c *OpenAICompleter) WithEndpoint(endpoint string, httpClient *http.Client) *OpenAICompleter {
	out := *c
	out.endpoint = endpoint
	if httpClient != nil {
		out.httpClient = httpClient
	}
	return &out
}

// Complete システム/ユーザープロンプトを送信し、最初の選択肢の本文を返す
func (c *OpenAICompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	requestBody, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: openAITemperature,
		MaxTokens:   openAIMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("リクエストボディのJSON変換に失敗しました: %v: %w", err, domain.ErrEncoding)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %v: %w", err, domain.ErrService)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("OpenAI APIリクエストの送信に失敗しました: %w: %w", err, domain.ErrService)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errorResponse openAIErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errorResponse); err != nil {
			return "", fmt.Errorf("OpenAI API呼び出しが失敗しました (Status: %d, レスポンス解析不可: %v): %w", resp.StatusCode, err, domain.ErrService)
		}
		return "", fmt.Errorf("OpenAI API呼び出しが失敗しました (Status: %d): %s: %w", resp.StatusCode, errorResponse.Error.Message, domain.ErrService)
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("OpenAI APIレスポンスの解析に失敗しました: %v: %w", err, domain.ErrDecoding)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("OpenAI APIレスポンスに選択肢がありません: %w", domain.ErrDecoding)
	}

	choice := completion.Choices[0]
	log.Printf("OpenAI APIの応答を受信しました (model=%s, finish_reason=%s, elapsed=%s)", c.model, choice.FinishReason, time.Since(started))
	return choice.Message.Content, nil
}
