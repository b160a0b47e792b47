package domain

import "errors"

var (
	// ErrEncoding イベントを提案サービス向けに直列化できない
	ErrEncoding = errors.New("encoding error")
	// ErrDecoding 提案サービスの応答から解決案を1つも取り出せない
	ErrDecoding = errors.New("decoding error")
	// ErrService 提案サービスとの通信に失敗した
	ErrService = errors.New("service error")
	// ErrNoValidCandidates 重複排除の結果、有効な解決案が残らなかった
	ErrNoValidCandidates = errors.New("no valid candidates")
	// ErrStaleRequest 同じイベントに対してより新しい提案リクエストが開始された
	ErrStaleRequest = errors.New("stale suggestion request")
	// ErrInvalidEvent イベントの入力内容が不正
	ErrInvalidEvent = errors.New("invalid event")
)
