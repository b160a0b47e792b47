package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/k-negishi/chronolog/internal/domain"
)

var jst = time.FixedZone("JST", 9*60*60)

// MockEventsProvider は EventsProvider のテスト用モック
type MockEventsProvider struct {
	mock.Mock
}

func (m *MockEventsProvider) ListEvents(calendarID, timeMin, timeMax string) ([]*calendar.Event, error) {
	args := m.Called(calendarID, timeMin, timeMax)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*calendar.Event), args.Error(1)
}

func newTestRepository(provider EventsProvider) *GoogleCalendarRepository {
	repo := NewGoogleCalendarRepositoryWithProvider(provider, jst, 7)
	repo.clock = func() time.Time { return time.Date(2024, 1, 15, 8, 30, 0, 0, jst) }
	return repo
}

// --- convertToEvent テスト（純粋ロジック） ---

func TestConvertToEvent(t *testing.T) {
	repo := newTestRepository(nil)

	start := time.Date(2024, 1, 1, 10, 0, 0, 0, jst)
	end := time.Date(2024, 1, 1, 11, 0, 0, 0, jst)
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, jst)

	tests := []struct {
		name          string
		input         *calendar.Event
		expected      domain.Event
		expectError   bool
		expectedError string
	}{
		{
			name: "通常イベント（時刻指定あり）",
			input: &calendar.Event{
				Id:          "test-id-1",
				Summary:     "Test Event 1",
				Start:       &calendar.EventDateTime{DateTime: "2024-01-01T10:00:00+09:00"},
				End:         &calendar.EventDateTime{DateTime: "2024-01-01T11:00:00+09:00"},
				Description: "line1\nline2",
			},
			expected: domain.Event{
				ID:              "test-id-1",
				Title:           "Test Event 1",
				StartTime:       &start,
				EndTime:         &end,
				DurationSeconds: 3600,
				Notes:           []string{"line1", "line2"},
			},
		},
		{
			name: "終日イベント",
			input: &calendar.Event{
				Id:      "test-id-2",
				Summary: "All Day Event",
				Start:   &calendar.EventDateTime{Date: "2024-01-02"},
				End:     &calendar.EventDateTime{Date: "2024-01-03"},
			},
			expected: domain.Event{
				ID:       "test-id-2",
				Title:    "All Day Event",
				Date:     &day,
				IsAllDay: true,
			},
		},
		{
			name: "タイトルが空で予定なし扱いのイベント",
			input: &calendar.Event{
				Id:           "test-id-3",
				Transparency: "transparent",
				Start:        &calendar.EventDateTime{DateTime: "2024-01-01T10:00:00+09:00"},
				End:          &calendar.EventDateTime{DateTime: "2024-01-01T11:00:00+09:00"},
			},
			expected: domain.Event{
				ID:              "test-id-3",
				Title:           "（無題）",
				StartTime:       &start,
				EndTime:         &end,
				DurationSeconds: 3600,
				AllowOverlap:    true,
			},
		},
		{
			name: "拡張プロパティあり",
			input: &calendar.Event{
				Id:      "test-id-4",
				Summary: "Focus",
				Start:   &calendar.EventDateTime{DateTime: "2024-01-01T10:00:00+09:00"},
				End:     &calendar.EventDateTime{DateTime: "2024-01-01T11:00:00+09:00"},
				ExtendedProperties: &calendar.EventExtendedProperties{
					Private: map[string]string{"priority": "High", "allowSplit": "true"},
				},
			},
			expected: domain.Event{
				ID:              "test-id-4",
				Title:           "Focus",
				StartTime:       &start,
				EndTime:         &end,
				DurationSeconds: 3600,
				AllowSplit:      true,
				Priority:        domain.PriorityHigh,
			},
		},
		{
			name: "開始時刻がない",
			input: &calendar.Event{
				Id:    "test-id-5",
				Start: &calendar.EventDateTime{},
				End:   &calendar.EventDateTime{DateTime: "2024-01-01T11:00:00+09:00"},
			},
			expectError:   true,
			expectedError: "開始時刻が設定されていません",
		},
		{
			name: "終了時刻がない",
			input: &calendar.Event{
				Id:    "test-id-6",
				Start: &calendar.EventDateTime{DateTime: "2024-01-01T10:00:00+09:00"},
				End:   &calendar.EventDateTime{},
			},
			expectError:   true,
			expectedError: "終了時刻が設定されていません",
		},
		{
			name: "不正な開始時刻フォーマット",
			input: &calendar.Event{
				Id:    "test-id-7",
				Start: &calendar.EventDateTime{DateTime: "invalid-time"},
				End:   &calendar.EventDateTime{DateTime: "2024-01-01T11:00:00+09:00"},
			},
			expectError:   true,
			expectedError: "開始時刻の解析に失敗しました",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := repo.convertToEvent(tt.input)

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected.Title, actual.Title)
			assert.Equal(t, tt.expected.IsAllDay, actual.IsAllDay)
			assert.Equal(t, tt.expected.AllowOverlap, actual.AllowOverlap)
			assert.Equal(t, tt.expected.AllowSplit, actual.AllowSplit)
			assert.Equal(t, tt.expected.Priority, actual.Priority)
			assert.Equal(t, tt.expected.Notes, actual.Notes)
			assert.Equal(t, tt.expected.DurationSeconds, actual.DurationSeconds)

			wantIv, _ := domain.EffectiveInterval(tt.expected, jst)
			gotIv, ok := domain.EffectiveInterval(actual, jst)
			require.True(t, ok)
			assert.True(t, wantIv.Start.Equal(gotIv.Start))
			assert.True(t, wantIv.End.Equal(gotIv.End))
		})
	}
}

// --- FetchEvents テスト（モック使用） ---

func TestFetchEvents_Success(t *testing.T) {
	mockProvider := new(MockEventsProvider)
	repo := newTestRepository(mockProvider)

	items := []*calendar.Event{
		{
			Id:      "1",
			Summary: "朝会",
			Start:   &calendar.EventDateTime{DateTime: "2024-01-15T09:00:00+09:00"},
			End:     &calendar.EventDateTime{DateTime: "2024-01-15T09:30:00+09:00"},
		},
		{Id: "broken", Summary: "壊れたイベント", Start: &calendar.EventDateTime{}, End: &calendar.EventDateTime{}},
	}

	mockProvider.On("ListEvents", "user@example.com", "2024-01-15T00:00:00+09:00", "2024-01-22T00:00:00+09:00").
		Return(items, nil)

	result, err := repo.FetchEvents(context.Background(), "user@example.com")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "朝会", result[0].Title)
	mockProvider.AssertExpectations(t)
}

func TestFetchEvents_APIError(t *testing.T) {
	mockProvider := new(MockEventsProvider)
	repo := newTestRepository(mockProvider)

	mockProvider.On("ListEvents", "test-calendar", mock.AnythingOfType("string"), mock.AnythingOfType("string")).
		Return(nil, errors.New("API error"))

	_, err := repo.FetchEvents(context.Background(), "test-calendar")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "カレンダーイベントの取得に失敗しました")
	mockProvider.AssertExpectations(t)
}

func TestSaveEvent_ReadOnly(t *testing.T) {
	repo := newTestRepository(nil)
	err := repo.SaveEvent(context.Background(), "test-calendar", domain.Event{Title: "x"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "読み取り専用")
}

// --- calendarServiceProvider テスト（モックサーバー使用） ---

func TestCalendarServiceProvider_ListEvents(t *testing.T) {
	t.Run("正常系: 複数のイベントが取得できる", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, "test-calendar-id/events")
			assert.Equal(t, "true", r.URL.Query().Get("singleEvents"))

			events := &calendar.Events{
				Items: []*calendar.Event{
					{
						Id:      "event1",
						Summary: "Test Event 1",
						Start:   &calendar.EventDateTime{DateTime: "2024-08-23T10:00:00+09:00"},
						End:     &calendar.EventDateTime{DateTime: "2024-08-23T11:00:00+09:00"},
					},
					{
						Id:      "event2",
						Summary: "All Day Event",
						Start:   &calendar.EventDateTime{Date: "2024-08-23"},
						End:     &calendar.EventDateTime{Date: "2024-08-24"},
					},
				},
			}
			assert.NoError(t, json.NewEncoder(w).Encode(events))
		}))
		t.Cleanup(server.Close)

		svc, err := calendar.NewService(context.Background(),
			option.WithEndpoint(server.URL),
			option.WithHTTPClient(server.Client()),
			option.WithoutAuthentication(),
		)
		require.NoError(t, err)

		repo := newTestRepository(&calendarServiceProvider{service: svc})
		events, err := repo.FetchEvents(context.Background(), "test-calendar-id")
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.False(t, events[0].IsAllDay)
		assert.True(t, events[1].IsAllDay)
	})

	t.Run("異常系: Google Calendar APIがエラーを返す", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(server.Close)

		svc, err := calendar.NewService(context.Background(),
			option.WithEndpoint(server.URL),
			option.WithHTTPClient(server.Client()),
			option.WithoutAuthentication(),
		)
		require.NoError(t, err)

		repo := newTestRepository(&calendarServiceProvider{service: svc})
		_, err = repo.FetchEvents(context.Background(), "test-calendar-id")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "カレンダーイベントの取得に失敗しました")
	})
}
