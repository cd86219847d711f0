package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"canary/internal/events"
	"canary/internal/models"
	"canary/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepository is a mock of the domain.ItemRepository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListItems(ctx context.Context) ([]models.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Item), args.Error(1)
}

func (m *MockRepository) CreateItem(ctx context.Context, item *models.Item) error {
	args := m.Called(ctx, item)
	if args.Error(0) == nil {
		item.ID = 1
	}
	return args.Error(0)
}

func (m *MockRepository) UpdateItem(ctx context.Context, item *models.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockRepository) DeleteItem(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) PingContext(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishJSON(eventType string, payload interface{}) error {
	args := m.Called(eventType, payload)
	return args.Error(0)
}

func strPtr(s string) *string { return &s }

func TestItemService_Create(t *testing.T) {
	mockRepo := new(MockRepository)
	publisher := new(MockPublisher)
	logger := zerolog.Nop()

	mockRepo.On("CreateItem", mock.Anything, &models.Item{Name: "Milk"}).Return(nil)
	publisher.On("PublishJSON", events.EventItemCreated, events.ItemEventPayload{ItemID: 1, Name: "Milk"}).Return(nil)

	s := NewItemService(mockRepo, nil, publisher, &logger)

	item, err := s.Create(context.Background(), models.ItemInput{Name: strPtr("Milk")})
	require.NoError(t, err)
	assert.Equal(t, models.Item{ID: 1, Name: "Milk", Description: ""}, item)
	mockRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestItemService_CreateMissingName(t *testing.T) {
	mockRepo := new(MockRepository)
	logger := zerolog.Nop()
	s := NewItemService(mockRepo, nil, nil, &logger)

	_, err := s.Create(context.Background(), models.ItemInput{Description: strPtr("x")})
	assert.ErrorIs(t, err, ErrMissingName)
	mockRepo.AssertNotCalled(t, "CreateItem", mock.Anything, mock.Anything)
}

func TestItemService_CreateStoreError(t *testing.T) {
	mockRepo := new(MockRepository)
	publisher := new(MockPublisher)
	logger := zerolog.Nop()

	mockRepo.On("CreateItem", mock.Anything, mock.Anything).Return(assert.AnError)
	s := NewItemService(mockRepo, nil, publisher, &logger)

	_, err := s.Create(context.Background(), models.ItemInput{Name: strPtr("Milk")})
	assert.ErrorIs(t, err, assert.AnError)
	publisher.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
}

func TestItemService_Update(t *testing.T) {
	mockRepo := new(MockRepository)
	logger := zerolog.Nop()

	expected := &models.Item{ID: 3, Name: "Milk", Description: "2%"}
	mockRepo.On("UpdateItem", mock.Anything, expected).Return(nil)

	s := NewItemService(mockRepo, nil, nil, &logger)

	item, err := s.Update(context.Background(), 3, models.ItemInput{Name: strPtr("Milk"), Description: strPtr("2%")})
	require.NoError(t, err)
	assert.Equal(t, *expected, item)
	mockRepo.AssertExpectations(t)
}

func TestItemService_UpdateMissingDescriptionResets(t *testing.T) {
	mockRepo := new(MockRepository)
	logger := zerolog.Nop()

	mockRepo.On("UpdateItem", mock.Anything, &models.Item{ID: 3, Name: "Milk", Description: ""}).Return(nil)
	s := NewItemService(mockRepo, nil, nil, &logger)

	item, err := s.Update(context.Background(), 3, models.ItemInput{Name: strPtr("Milk")})
	require.NoError(t, err)
	assert.Equal(t, "", item.Description)
	mockRepo.AssertExpectations(t)
}

func TestItemService_UpdateNotFound(t *testing.T) {
	mockRepo := new(MockRepository)
	publisher := new(MockPublisher)
	logger := zerolog.Nop()

	mockRepo.On("UpdateItem", mock.Anything, mock.Anything).Return(fmt.Errorf("update item 9: %w", ErrItemNotFound))
	s := NewItemService(mockRepo, nil, publisher, &logger)

	_, err := s.Update(context.Background(), 9, models.ItemInput{Name: strPtr("x")})
	assert.ErrorIs(t, err, ErrItemNotFound)
	publisher.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
}

func TestItemService_UpdateValidatesBeforeStore(t *testing.T) {
	mockRepo := new(MockRepository)
	logger := zerolog.Nop()
	s := NewItemService(mockRepo, nil, nil, &logger)

	_, err := s.Update(context.Background(), 1, models.ItemInput{})
	assert.ErrorIs(t, err, ErrMissingName)
	mockRepo.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything)
}

func TestItemService_Delete(t *testing.T) {
	mockRepo := new(MockRepository)
	publisher := new(MockPublisher)
	logger := zerolog.Nop()

	mockRepo.On("DeleteItem", mock.Anything, int64(5)).Return(nil)
	mockRepo.On("DeleteItem", mock.Anything, int64(6)).Return(ErrItemNotFound)
	publisher.On("PublishJSON", events.EventItemDeleted, events.ItemEventPayload{ItemID: 5}).Return(nil)

	s := NewItemService(mockRepo, nil, publisher, &logger)

	require.NoError(t, s.Delete(context.Background(), 5))
	assert.ErrorIs(t, s.Delete(context.Background(), 6), ErrItemNotFound)
	mockRepo.AssertExpectations(t)
	publisher.AssertNumberOfCalls(t, "PublishJSON", 1)
}

func TestItemService_PublishErrorDoesNotFail(t *testing.T) {
	mockRepo := new(MockRepository)
	publisher := new(MockPublisher)
	logger := zerolog.Nop()

	mockRepo.On("DeleteItem", mock.Anything, int64(5)).Return(nil)
	publisher.On("PublishJSON", mock.Anything, mock.Anything).Return(errors.New("bus down"))

	s := NewItemService(mockRepo, nil, publisher, &logger)
	assert.NoError(t, s.Delete(context.Background(), 5))
}

func TestItemService_ListUsesCache(t *testing.T) {
	mockRepo := new(MockRepository)
	logger := zerolog.Nop()
	cache := repository.NewMemoryItemCache(time.Minute)
	ctx := context.Background()

	stored := []models.Item{{ID: 1, Name: "Milk"}}
	mockRepo.On("ListItems", mock.Anything).Return(stored, nil).Once()

	s := NewItemService(mockRepo, cache, nil, &logger)

	first, err := s.List(ctx)
	require.NoError(t, err)
	second, err := s.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, stored, first)
	assert.Equal(t, stored, second)
	mockRepo.AssertNumberOfCalls(t, "ListItems", 1)
}

func TestItemService_MutationInvalidatesCache(t *testing.T) {
	mockRepo := new(MockRepository)
	logger := zerolog.Nop()
	cache := repository.NewMemoryItemCache(time.Minute)
	ctx := context.Background()

	mockRepo.On("ListItems", mock.Anything).Return([]models.Item{}, nil).Once()
	mockRepo.On("CreateItem", mock.Anything, mock.Anything).Return(nil)
	mockRepo.On("ListItems", mock.Anything).Return([]models.Item{{ID: 1, Name: "Milk"}}, nil).Once()

	s := NewItemService(mockRepo, cache, nil, &logger)

	items, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = s.Create(ctx, models.ItemInput{Name: strPtr("Milk")})
	require.NoError(t, err)

	items, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	mockRepo.AssertNumberOfCalls(t, "ListItems", 2)
}

func TestItemService_ListStoreError(t *testing.T) {
	mockRepo := new(MockRepository)
	logger := zerolog.Nop()

	mockRepo.On("ListItems", mock.Anything).Return(nil, assert.AnError)
	s := NewItemService(mockRepo, nil, nil, &logger)

	items, err := s.List(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Nil(t, items)
}

func TestItemService_Ready(t *testing.T) {
	mockRepo := new(MockRepository)
	logger := zerolog.Nop()

	mockRepo.On("PingContext", mock.Anything).Return(nil).Once()
	mockRepo.On("PingContext", mock.Anything).Return(assert.AnError).Once()

	s := NewItemService(mockRepo, nil, nil, &logger)

	assert.NoError(t, s.Ready(context.Background()))
	assert.ErrorIs(t, s.Ready(context.Background()), assert.AnError)
}

// gatedRepo is an in-memory store whose first ListItems takes its snapshot and
// then waits on release before returning it.
type gatedRepo struct {
	mu      sync.Mutex
	items   []models.Item
	nextID  int64
	gated   bool
	listing chan struct{}
	release chan struct{}
}

func newGatedRepo() *gatedRepo {
	return &gatedRepo{listing: make(chan struct{}), release: make(chan struct{})}
}

func (r *gatedRepo) ListItems(context.Context) ([]models.Item, error) {
	r.mu.Lock()
	snapshot := append([]models.Item{}, r.items...)
	first := !r.gated
	r.gated = true
	r.mu.Unlock()

	if first {
		close(r.listing)
		<-r.release
	}
	return snapshot, nil
}

func (r *gatedRepo) CreateItem(_ context.Context, item *models.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	item.ID = r.nextID
	r.items = append(r.items, *item)
	return nil
}

func (r *gatedRepo) UpdateItem(context.Context, *models.Item) error { return nil }
func (r *gatedRepo) DeleteItem(context.Context, int64) error        { return nil }
func (r *gatedRepo) PingContext(context.Context) error              { return nil }

func TestItemService_ListOverlappingCreateDoesNotCacheStaleList(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()
	repo := newGatedRepo()
	s := NewItemService(repo, repository.NewMemoryItemCache(time.Minute), nil, &logger)

	done := make(chan []models.Item, 1)
	go func() {
		items, err := s.List(ctx)
		assert.NoError(t, err)
		done <- items
	}()

	<-repo.listing
	_, err := s.Create(ctx, models.ItemInput{Name: strPtr("Milk")})
	require.NoError(t, err)
	close(repo.release)

	assert.Empty(t, <-done)

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Milk", items[0].Name)
}

type versionErrorCache struct {
	*repository.MemoryItemCache
}

func (versionErrorCache) Version(context.Context) (uint64, error) {
	return 0, assert.AnError
}

func TestItemService_ListSkipsCacheWriteWithoutVersion(t *testing.T) {
	mockRepo := new(MockRepository)
	logger := zerolog.Nop()
	ctx := context.Background()
	cache := versionErrorCache{repository.NewMemoryItemCache(time.Minute)}

	mockRepo.On("ListItems", mock.Anything).Return([]models.Item{{ID: 1, Name: "Milk"}}, nil).Twice()
	s := NewItemService(mockRepo, cache, nil, &logger)

	for i := 0; i < 2; i++ {
		items, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	}
	mockRepo.AssertNumberOfCalls(t, "ListItems", 2)
}
