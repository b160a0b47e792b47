package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"

	"github.com/k-negishi/chronolog/internal/domain"
)

func TestMultiSourceRepository_FetchEvents(t *testing.T) {
	primary := NewMemoryDocumentStore()
	ctx := context.Background()
	require.NoError(t, primary.SaveEvent(ctx, "owner-1", domain.Event{Title: "ローカル予定"}))

	mockProvider := new(MockEventsProvider)
	mockProvider.On("ListEvents", "primary@example.com", mock.AnythingOfType("string"), mock.AnythingOfType("string")).
		Return([]*calendar.Event{{
			Id:      "g1",
			Summary: "Googleの予定",
			Start:   &calendar.EventDateTime{DateTime: "2024-01-16T10:00:00+09:00"},
			End:     &calendar.EventDateTime{DateTime: "2024-01-16T11:00:00+09:00"},
		}}, nil)

	repo := NewMultiSourceRepository(primary, ExternalSource{
		Name:     "google",
		Fetcher:  newTestRepository(mockProvider),
		SourceID: "primary@example.com",
	})

	events, err := repo.FetchEvents(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "ローカル予定", events[0].Title)
	assert.Equal(t, "Googleの予定", events[1].Title)
	mockProvider.AssertExpectations(t)
}

func TestMultiSourceRepository_ExternalFailureIsSkipped(t *testing.T) {
	primary := NewMemoryDocumentStore()
	ctx := context.Background()
	require.NoError(t, primary.SaveEvent(ctx, "owner-1", domain.Event{Title: "ローカル予定"}))

	mockProvider := new(MockEventsProvider)
	mockProvider.On("ListEvents", "owner-1", mock.AnythingOfType("string"), mock.AnythingOfType("string")).
		Return(nil, errors.New("quota exceeded"))

	repo := NewMultiSourceRepository(primary, ExternalSource{Name: "google", Fetcher: newTestRepository(mockProvider)})

	events, err := repo.FetchEvents(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	mockProvider.AssertExpectations(t)
}

func TestMultiSourceRepository_SaveGoesToPrimary(t *testing.T) {
	primary := NewMemoryDocumentStore()
	repo := NewMultiSourceRepository(primary, ExternalSource{Name: "google", Fetcher: newTestRepository(nil)})
	ctx := context.Background()

	start := time.Date(2024, 1, 16, 10, 0, 0, 0, jst)
	require.NoError(t, repo.SaveEvent(ctx, "owner-1", domain.Event{Title: "新しい予定", StartTime: &start}))

	saved, err := primary.FetchEvents(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "新しい予定", saved[0].Title)
}

func TestMultiSourceRepository_PrimaryError(t *testing.T) {
	repo := NewMultiSourceRepository(failingStore{})
	_, err := repo.FetchEvents(context.Background(), "owner-1")
	assert.ErrorContains(t, err, "既存イベントの取得に失敗しました")
}

type failingStore struct{}

func (failingStore) FetchEvents(context.Context, string) ([]domain.Event, error) {
	return nil, errors.New("disk full")
}

func (failingStore) SaveEvent(context.Context, string, domain.Event) error {
	return errors.New("disk full")
}
