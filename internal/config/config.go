package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// イベントの保存先
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
	StoreGoogle = "google"
)

// ssmParameterGetter Parameter Storeからパラメータを取得するクライアント
type ssmParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Config アプリケーション設定構造体
type Config struct {
	// 提案サービス設定
	OpenAIAPIKey string
	OpenAIModel  string

	// イベントストア設定
	Store       string
	DatabaseURL string

	// Google Calendar設定
	GoogleCredentials string
	CalendarID        string

	// LINE API設定
	LineChannelAccessToken string
	LineUserID             string

	// その他設定
	LogLevel    string
	Timezone    string
	HorizonDays int

	// AWS関連（本番環境でのみ使用）
	ssmClient ssmParameterGetter
}

// fileConfig CONFIG_FILE で指定するYAMLファイルの構造（機密情報は含めない）
type fileConfig struct {
	OpenAIModel string `yaml:"openai_model"`
	Store       string `yaml:"store"`
	DatabaseURL string `yaml:"database_url"`
	CalendarID  string `yaml:"calendar_id"`
	LogLevel    string `yaml:"log_level"`
	Timezone    string `yaml:"timezone"`
	HorizonDays int    `yaml:"horizon_days"`
}

// Load 環境に応じて設定を読み込み
func Load() (*Config, error) {
	// AWS Lambda環境かどうか判定
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		return loadAWSConfig()
	}
	return loadLocalConfig()
}

// loadLocalConfig ローカル開発環境用の設定読み込み
func loadLocalConfig() (*Config, error) {
	// .envファイルを読み込み（存在する場合のみ）
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .envファイルが見つかりません: %v", err)
	}

	cfg, err := loadBaseConfig()
	if err != nil {
		return nil, err
	}
	cfg.OpenAIAPIKey = getEnvOrDefault("OPENAI_API_KEY", "")
	cfg.GoogleCredentials = getEnvOrDefault("GOOGLE_CREDENTIALS", "")
	cfg.LineChannelAccessToken = getEnvOrDefault("LINE_CHANNEL_ACCESS_TOKEN", "")
	cfg.LineUserID = getEnvOrDefault("LINE_USER_ID", "")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadAWSConfig AWS Lambda環境用の設定読み込み
func loadAWSConfig() (*Config, error) {
	ctx := context.TODO()

	// AWS設定を初期化
	awsConfig, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("AWS設定の読み込みに失敗しました: %v", err)
	}

	cfg, err := loadBaseConfig()
	if err != nil {
		return nil, err
	}
	cfg.ssmClient = ssm.NewFromConfig(awsConfig)

	// Parameter Storeから機密情報を取得
	if err := cfg.loadFromParameterStore(ctx); err != nil {
		return nil, fmt.Errorf("parameter Storeからの設定読み込みに失敗しました: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadBaseConfig 機密でない設定をデフォルト値 → YAMLファイル → 環境変数の順に重ねる
func loadBaseConfig() (*Config, error) {
	cfg := &Config{
		OpenAIModel: "gpt-4o",
		Store:       StoreSQLite,
		DatabaseURL: "chronolog.db",
		CalendarID:  "primary",
		LogLevel:    "INFO",
		Timezone:    "Asia/Tokyo",
		HorizonDays: 14,
	}

	if path := getEnvOrDefault("CONFIG_FILE", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.Store = strings.ToLower(getEnvOrDefault("STORE", cfg.Store))
	cfg.DatabaseURL = getEnvOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.CalendarID = getEnvOrDefault("CALENDAR_ID", cfg.CalendarID)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.Timezone = getEnvOrDefault("TIMEZONE", cfg.Timezone)

	horizon, err := getEnvIntOrDefault("HORIZON_DAYS", cfg.HorizonDays)
	if err != nil {
		return nil, err
	}
	cfg.HorizonDays = horizon

	return cfg, nil
}

// applyFile YAML設定ファイルの値で上書き（空の項目は無視）
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイル %s の読み込みに失敗しました: %v", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("設定ファイル %s の解析に失敗しました: %v", path, err)
	}

	if fc.OpenAIModel != "" {
		c.OpenAIModel = fc.OpenAIModel
	}
	if fc.Store != "" {
		c.Store = fc.Store
	}
	if fc.DatabaseURL != "" {
		c.DatabaseURL = fc.DatabaseURL
	}
	if fc.CalendarID != "" {
		c.CalendarID = fc.CalendarID
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.Timezone != "" {
		c.Timezone = fc.Timezone
	}
	if fc.HorizonDays > 0 {
		c.HorizonDays = fc.HorizonDays
	}
	return nil
}

// Validate 必須設定項目の確認
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY環境変数が設定されていません")
	}
	switch c.Store {
	case StoreSQLite, StoreMemory:
	case StoreGoogle:
		if c.GoogleCredentials == "" {
			return fmt.Errorf("GOOGLE_CREDENTIALS環境変数が設定されていません")
		}
	default:
		return fmt.Errorf("STOREの値が不正です: %s", c.Store)
	}
	if c.LineChannelAccessToken != "" && c.LineUserID == "" {
		return fmt.Errorf("LINE_USER_ID環境変数が設定されていません")
	}
	if c.HorizonDays <= 0 {
		return fmt.Errorf("HORIZON_DAYSは1以上を指定してください: %d", c.HorizonDays)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONEの値が不正です: %s", c.Timezone)
	}
	return nil
}

// Location 設定されたタイムゾーンを返す
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// LineEnabled LINE通知の設定があるか
func (c *Config) LineEnabled() bool {
	return c.LineChannelAccessToken != "" && c.LineUserID != ""
}

// loadFromParameterStore Parameter Storeから機密情報を読み込み
//
// OpenAI APIキーは必須。その他は存在しなければ空のままにする。
func (c *Config) loadFromParameterStore(ctx context.Context) error {
	// OpenAI APIキーを取得
	openAIKeyParam := getEnvOrDefault("SSM_OPENAI_API_KEY_PARAM", "/chronolog/openai-api-key")
	openAIKey, err := c.getParameter(ctx, openAIKeyParam, true)
	if err != nil {
		return fmt.Errorf("OpenAI APIキーの取得に失敗しました: %v", err)
	}
	c.OpenAIAPIKey = openAIKey

	optional := []struct {
		env, defaultName string
		target           *string
	}{
		{"SSM_GOOGLE_CREDS_PARAM", "/chronolog/google-creds", &c.GoogleCredentials},
		{"SSM_LINE_TOKEN_PARAM", "/chronolog/line-channel-access-token", &c.LineChannelAccessToken},
		{"SSM_LINE_USER_ID_PARAM", "/chronolog/line-user-id", &c.LineUserID},
	}
	for _, p := range optional {
		name := getEnvOrDefault(p.env, p.defaultName)
		value, err := c.getParameter(ctx, name, true)
		if err != nil {
			var notFound *types.ParameterNotFound
			if errors.As(err, &notFound) {
				log.Printf("Warning: パラメータ %s が見つからないためスキップします", name)
				continue
			}
			return err
		}
		*p.target = value
	}

	return nil
}

// getParameter Parameter Storeから指定されたパラメータを取得
func (c *Config) getParameter(ctx context.Context, paramName string, withDecryption bool) (string, error) {
	input := &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(withDecryption),
	}

	result, err := c.ssmClient.GetParameter(ctx, input)
	if err != nil {
		return "", fmt.Errorf("パラメータ %s の取得に失敗しました: %w", paramName, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return "", fmt.Errorf("パラメータ %s が空の値です", paramName)
	}

	return *result.Parameter.Value, nil
}

// GetGoogleCredentialsJSON Google認証情報をJSONとして解析
func (c *Config) GetGoogleCredentialsJSON() (map[string]interface{}, error) {
	var credentials map[string]interface{}
	if err := json.Unmarshal([]byte(c.GoogleCredentials), &credentials); err != nil {
		return nil, fmt.Errorf("google認証情報のJSON解析に失敗しました: %v", err)
	}
	return credentials, nil
}

// getEnvOrDefault 環境変数を取得し、存在しない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault 整数の環境変数を取得
func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	raw := getEnvOrDefault(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s環境変数が整数ではありません: %s", key, raw)
	}
	return value, nil
}
