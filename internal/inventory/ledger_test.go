package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"bonstock-be/internal/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateItem(ctx context.Context, item *Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockRepository) GetItem(ctx context.Context, productID string) (*Item, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Item), args.Error(1)
}

func (m *MockRepository) ListItems(ctx context.Context, status *StockStatus) ([]*Item, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Item), args.Error(1)
}

func (m *MockRepository) UpdateItemQuantity(ctx context.Context, productID string, quantity int, status StockStatus, at time.Time) error {
	args := m.Called(ctx, productID, quantity, status, at)
	return args.Error(0)
}

func (m *MockRepository) InsertMovement(ctx context.Context, mv *Movement) error {
	args := m.Called(ctx, mv)
	return args.Error(0)
}

func (m *MockRepository) ListMovements(ctx context.Context, productID string) ([]*Movement, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Movement), args.Error(1)
}

// recordingDispatcher captures dispatched notifications in order.
type recordingDispatcher struct {
	sent []*notification.Notification
}

func (d *recordingDispatcher) Dispatch(_ context.Context, n *notification.Notification) {
	d.sent = append(d.sent, n)
}

func anyTime() interface{} { return mock.AnythingOfType("time.Time") }

// --- Tests ---

func TestLedger_PostMovement_Validation(t *testing.T) {
	ctx := context.Background()
	disp := &recordingDispatcher{}

	cases := []struct {
		name  string
		input PostInput
	}{
		{"MissingProduct", PostInput{Type: MovementIn, Quantity: 1, CreatedBy: "u1"}},
		{"UnknownType", PostInput{ProductID: "p1", Type: "teleport", Quantity: 1, CreatedBy: "u1"}},
		{"ZeroQuantity", PostInput{ProductID: "p1", Type: MovementIn, Quantity: 0, CreatedBy: "u1"}},
		{"NegativeQuantity", PostInput{ProductID: "p1", Type: MovementOut, Quantity: -3, CreatedBy: "u1"}},
		{"MissingActor", PostInput{ProductID: "p1", Type: MovementIn, Quantity: 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			l := NewLedger(mockRepo, disp)

			_, err := l.PostMovement(ctx, tc.input)

			assert.ErrorIs(t, err, ErrValidation)
			mockRepo.AssertNotCalled(t, "InsertMovement", mock.Anything, mock.Anything)
		})
	}
}

// Scenario: quantity 12, threshold 10 (normal); out 5 -> 7 (low, one
// notification); out 2 -> 5 (still low, silent).
func TestLedger_PostMovement_BandTransitions(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockRepository)
	disp := &recordingDispatcher{}
	l := NewLedger(mockRepo, disp)

	item := &Item{ProductID: "p1", Name: "Olive oil", Unit: "btl", Quantity: 12, Threshold: 10, Status: StockNormal}

	mockRepo.On("GetItem", ctx, "p1").Return(item, nil).Once()
	mockRepo.On("InsertMovement", ctx, mock.AnythingOfType("*inventory.Movement")).Return(nil)
	mockRepo.On("UpdateItemQuantity", ctx, "p1", 7, StockLow, anyTime()).Return(nil).Once()

	mv, err := l.PostMovement(ctx, PostInput{ProductID: "p1", Type: MovementOut, Quantity: 5, CreatedBy: "u1"})
	require.NoError(t, err)
	assert.Equal(t, -5, mv.Delta())

	require.Len(t, disp.sent, 1)
	assert.Equal(t, notification.TypeLowStock, disp.sent[0].Type)
	assert.Equal(t, "p1", disp.sent[0].Reference)

	// Second movement stays in the low band: no further notification.
	item2 := &Item{ProductID: "p1", Name: "Olive oil", Unit: "btl", Quantity: 7, Threshold: 10, Status: StockLow}
	mockRepo.On("GetItem", ctx, "p1").Return(item2, nil).Once()
	mockRepo.On("UpdateItemQuantity", ctx, "p1", 5, StockLow, anyTime()).Return(nil).Once()

	_, err = l.PostMovement(ctx, PostInput{ProductID: "p1", Type: MovementOut, Quantity: 2, CreatedBy: "u1"})
	require.NoError(t, err)
	assert.Len(t, disp.sent, 1)

	mockRepo.AssertExpectations(t)
}

func TestLedger_PostMovement_EnteringOut(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockRepository)
	disp := &recordingDispatcher{}
	l := NewLedger(mockRepo, disp)

	item := &Item{ProductID: "p1", Name: "Flour", Unit: "kg", Quantity: 3, Threshold: 10, Status: StockLow}
	mockRepo.On("GetItem", ctx, "p1").Return(item, nil)
	mockRepo.On("InsertMovement", ctx, mock.Anything).Return(nil)
	mockRepo.On("UpdateItemQuantity", ctx, "p1", 0, StockOut, anyTime()).Return(nil)

	_, err := l.PostMovement(ctx, PostInput{ProductID: "p1", Type: MovementOut, Quantity: 3, CreatedBy: "u1"})
	require.NoError(t, err)

	require.Len(t, disp.sent, 1)
	assert.Equal(t, notification.TypeOutOfStock, disp.sent[0].Type)
}

func TestLedger_PostMovement_ClampsAtZero(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockRepository)
	disp := &recordingDispatcher{}
	l := NewLedger(mockRepo, disp)

	// Outbound correction larger than the cached quantity: movement is
	// still recorded, cache clamps to zero.
	item := &Item{ProductID: "p1", Name: "Flour", Unit: "kg", Quantity: 2, Threshold: 5, Status: StockLow}
	mockRepo.On("GetItem", ctx, "p1").Return(item, nil)
	mockRepo.On("InsertMovement", ctx, mock.Anything).Return(nil)
	mockRepo.On("UpdateItemQuantity", ctx, "p1", 0, StockOut, anyTime()).Return(nil)

	mv, err := l.PostMovement(ctx, PostInput{ProductID: "p1", Type: MovementAdjustmentOut, Quantity: 9, CreatedBy: "auditor"})
	require.NoError(t, err)
	assert.Equal(t, 9, mv.Quantity)

	mockRepo.AssertExpectations(t)
}

func TestLedger_PostMovement_ItemNotFound(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockRepository)
	l := NewLedger(mockRepo, &recordingDispatcher{})

	mockRepo.On("GetItem", ctx, "ghost").Return(nil, ErrItemNotFound)

	_, err := l.PostMovement(ctx, PostInput{ProductID: "ghost", Type: MovementIn, Quantity: 1, CreatedBy: "u1"})
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestLedger_PostMovement_InsertFailureAbortsCacheUpdate(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockRepository)
	l := NewLedger(mockRepo, &recordingDispatcher{})

	item := &Item{ProductID: "p1", Quantity: 10, Threshold: 2, Status: StockNormal}
	mockRepo.On("GetItem", ctx, "p1").Return(item, nil)
	mockRepo.On("InsertMovement", ctx, mock.Anything).Return(errors.New("db error"))

	_, err := l.PostMovement(ctx, PostInput{ProductID: "p1", Type: MovementOut, Quantity: 1, CreatedBy: "u1"})
	assert.Error(t, err)
	mockRepo.AssertNotCalled(t, "UpdateItemQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLedger_Rebuild(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockRepository)
	l := NewLedger(mockRepo, &recordingDispatcher{})

	// Cache says 99, history says otherwise. Rebuild trusts the ledger.
	item := &Item{ProductID: "p1", Quantity: 99, Threshold: 10, Status: StockNormal}
	history := []*Movement{
		{Type: MovementIn, Quantity: 12},
		{Type: MovementOut, Quantity: 5},
		{Type: MovementAdjustmentOut, Quantity: 2},
	}

	mockRepo.On("GetItem", ctx, "p1").Return(item, nil)
	mockRepo.On("ListMovements", ctx, "p1").Return(history, nil)
	mockRepo.On("UpdateItemQuantity", ctx, "p1", 5, StockLow, anyTime()).Return(nil)

	qty, err := l.Rebuild(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, qty)
	mockRepo.AssertExpectations(t)
}

// Replay invariant: the cached value after a sequence of postings equals a
// fold of the same movements from zero.
func TestLedger_ReplayInvariant(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockRepository)
	l := NewLedger(mockRepo, &recordingDispatcher{})

	item := &Item{ProductID: "p1", Quantity: 0, Threshold: 3, Status: StockOut}
	var history []*Movement
	cached := item.Quantity

	mockRepo.On("InsertMovement", ctx, mock.Anything).Run(func(args mock.Arguments) {
		history = append(history, args.Get(1).(*Movement))
	}).Return(nil)
	mockRepo.On("GetItem", ctx, "p1").Return(item, nil)
	mockRepo.On("UpdateItemQuantity", ctx, "p1", mock.AnythingOfType("int"), mock.AnythingOfType("inventory.StockStatus"), anyTime()).
		Run(func(args mock.Arguments) {
			cached = args.Get(2).(int)
			item.Quantity = cached
			item.Status = args.Get(3).(StockStatus)
		}).Return(nil)

	posts := []PostInput{
		{ProductID: "p1", Type: MovementIn, Quantity: 10, CreatedBy: "u1"},
		{ProductID: "p1", Type: MovementOut, Quantity: 4, CreatedBy: "u1"},
		{ProductID: "p1", Type: MovementAdjustmentOut, Quantity: 9, CreatedBy: "u1"}, // clamps
		{ProductID: "p1", Type: MovementAdjustmentIn, Quantity: 2, CreatedBy: "u1"},
	}
	for _, p := range posts {
		_, err := l.PostMovement(ctx, p)
		require.NoError(t, err)
	}

	assert.Equal(t, Replay(0, history), cached)
	assert.Equal(t, 2, cached)
}

func TestLedger_CreateItem(t *testing.T) {
	ctx := context.Background()

	t.Run("NormalizesBaseline", func(t *testing.T) {
		mockRepo := new(MockRepository)
		l := NewLedger(mockRepo, &recordingDispatcher{})

		item := &Item{ProductID: "p1", Name: "Rice", Unit: "kg", Quantity: 50, Threshold: 10}
		mockRepo.On("CreateItem", ctx, item).Return(nil)

		require.NoError(t, l.CreateItem(ctx, item))
		// Opening stock arrives by movement, never by direct cache write.
		assert.Equal(t, 0, item.Quantity)
		assert.Equal(t, StockOut, item.Status)
	})

	t.Run("Validation", func(t *testing.T) {
		mockRepo := new(MockRepository)
		l := NewLedger(mockRepo, &recordingDispatcher{})

		assert.ErrorIs(t, l.CreateItem(ctx, &Item{Name: "x"}), ErrValidation)
		assert.ErrorIs(t, l.CreateItem(ctx, &Item{ProductID: "p1"}), ErrValidation)
		assert.ErrorIs(t, l.CreateItem(ctx, &Item{ProductID: "p1", Name: "x", Threshold: -1}), ErrValidation)
	})
}

func TestLedger_CurrentQuantity(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockRepository)
	l := NewLedger(mockRepo, &recordingDispatcher{})

	mockRepo.On("GetItem", ctx, "p1").Return(&Item{ProductID: "p1", Quantity: 42}, nil)

	qty, err := l.CurrentQuantity(ctx, "p1")
	assert.NoError(t, err)
	assert.Equal(t, 42, qty)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StockOut, StatusFor(0, 10))
	assert.Equal(t, StockLow, StatusFor(1, 10))
	assert.Equal(t, StockLow, StatusFor(10, 10))
	assert.Equal(t, StockNormal, StatusFor(11, 10))
}
