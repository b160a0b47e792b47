package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/k-negishi/chronolog/internal/domain"
)

// eventRow events テーブルの行
type eventRow struct {
	ID              string `gorm:"primaryKey"`
	OwnerID         string `gorm:"index;not null"`
	Title           string `gorm:"not null"`
	Date            *time.Time
	StartTime       *time.Time
	EndTime         *time.Time
	DurationSeconds int
	Description     string
	IsRecurring     bool   `gorm:"default:false"`
	DaysOfWeek      string // カンマ区切りの曜日名
	IsAllDay        bool   `gorm:"default:false"`
	AllowSplit      bool   `gorm:"default:false"`
	AllowOverlap    bool   `gorm:"default:false"`
	Priority        string `gorm:"default:medium"`
	Deadline        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (eventRow) TableName() string { return "events" }

// SQLiteEventStore gorm + SQLite によるイベントの永続化
type SQLiteEventStore struct {
	db *gorm.DB
}

// OpenSQLite SQLiteデータベースを開いてマイグレーションを実行する
//
// logLevel は LOG_LEVEL の値で、gorm のログ出力の閾値になる。
func OpenSQLite(dsn, logLevel string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "chronolog.db"
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogLevel(logLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&eventRow{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return db, nil
}

// NewSQLiteEventStore 開いたデータベースからストアを作成
func NewSQLiteEventStore(db *gorm.DB) *SQLiteEventStore {
	return &SQLiteEventStore{db: db}
}

// FetchEvents 所有者のイベントを開始時刻順に取得
func (s *SQLiteEventStore) FetchEvents(ctx context.Context, ownerID string) ([]domain.Event, error) {
	var rows []eventRow
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("start_time NULLS LAST, created_at").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}

	events := make([]domain.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toEvent())
	}
	return events, nil
}

// SaveEvent イベントを保存する。ID が空なら新しく採番する
func (s *SQLiteEventStore) SaveEvent(ctx context.Context, ownerID string, event domain.Event) error {
	row := rowFromEvent(ownerID, event)
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}

func rowFromEvent(ownerID string, e domain.Event) eventRow {
	return eventRow{
		ID:              e.ID,
		OwnerID:         ownerID,
		Title:           e.Title,
		Date:            e.Date,
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		DurationSeconds: e.DurationSeconds,
		Description:     strings.Join(e.Notes, "\n"),
		IsRecurring:     e.IsRecurring,
		DaysOfWeek:      strings.Join(e.DaysOfWeek.Names(), ","),
		IsAllDay:        e.IsAllDay,
		AllowSplit:      e.AllowSplit,
		AllowOverlap:    e.AllowOverlap,
		Priority:        e.Priority.String(),
		Deadline:        e.Deadline,
	}
}

func (r eventRow) toEvent() domain.Event {
	e := domain.Event{
		ID:              r.ID,
		Title:           r.Title,
		Date:            r.Date,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		DurationSeconds: r.DurationSeconds,
		IsRecurring:     r.IsRecurring,
		IsAllDay:        r.IsAllDay,
		AllowSplit:      r.AllowSplit,
		AllowOverlap:    r.AllowOverlap,
		Priority:        domain.ParsePriority(r.Priority),
		Deadline:        r.Deadline,
	}
	if r.Description != "" {
		e.Notes = strings.Split(r.Description, "\n")
	}
	if r.DaysOfWeek != "" {
		names := make(map[string]bool)
		for _, name := range strings.Split(r.DaysOfWeek, ",") {
			names[name] = true
		}
		e.DaysOfWeek = domain.ParseWeekdayNames(names)
	}
	return e
}

// gormLogLevel LOG_LEVEL を gorm のログレベルに変換（既定は Warn）
func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return logger.Info
	case "ERROR":
		return logger.Error
	case "SILENT", "OFF":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// ensureDirForSQLite SQLiteファイルの親ディレクトリを作成する
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
