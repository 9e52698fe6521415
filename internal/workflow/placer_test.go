package workflow

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/grocer/services/assistant/internal/models"
)

// Mock order store for testing
type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) Create(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func newTestPlacer(orders OrderStore) *Placer {
	return &Placer{
		orders: orders,
		now:    func() time.Time { return time.Date(2026, 3, 1, 14, 30, 5, 0, time.UTC) },
	}
}

func testEntries() []models.OptionEntry {
	return []models.OptionEntry{
		{ProductID: "P1", Name: "Whole Milk", Quantity: 2, UnitPrice: 1.20, Subtotal: 2.40},
		{ProductID: "P2", Name: "White Bread", Quantity: 1, UnitPrice: 0.90, Subtotal: 0.90},
	}
}

func TestPlaceOrder(t *testing.T) {
	mockOrders := new(MockOrderStore)
	mockOrders.On("Create", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil)

	placer := newTestPlacer(mockOrders)
	order, err := placer.PlaceOrder(context.Background(), "CUST-1", testEntries(), 3.30)

	require.NoError(t, err)
	require.NotNil(t, order)
	require.Equal(t, "CUST-1", order.CustomerID)
	require.Equal(t, models.OrderPending, order.Status)
	require.Equal(t, 3.30, order.TotalAmount)
	require.Len(t, order.Items, 2)

	require.Regexp(t, regexp.MustCompile(`^ORD-20260301143005-[0-9a-f]{8}$`), order.OrderID)

	mockOrders.AssertExpectations(t)
}

func TestPlaceOrderToleratesRoundingGap(t *testing.T) {
	mockOrders := new(MockOrderStore)
	mockOrders.On("Create", mock.Anything, mock.Anything).Return(nil)

	placer := newTestPlacer(mockOrders)
	_, err := placer.PlaceOrder(context.Background(), "CUST-1", testEntries(), 3.31)

	require.NoError(t, err)
}

func TestPlaceOrderRejectsTotalMismatch(t *testing.T) {
	mockOrders := new(MockOrderStore)

	placer := newTestPlacer(mockOrders)
	order, err := placer.PlaceOrder(context.Background(), "CUST-1", testEntries(), 5.00)

	require.Nil(t, order)
	var mismatch *TotalMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, 5.00, mismatch.Submitted)
	require.InDelta(t, 3.30, mismatch.Computed, 1e-9)

	// Validation happens before any persistence call
	mockOrders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPlaceOrderSurfacesStoreFailure(t *testing.T) {
	mockOrders := new(MockOrderStore)
	mockOrders.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	placer := newTestPlacer(mockOrders)
	order, err := placer.PlaceOrder(context.Background(), "CUST-1", testEntries(), 3.30)

	require.Nil(t, order)
	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	require.Equal(t, "place_order", persistErr.Op)
}

func TestPlaceOrderIDsAreUnique(t *testing.T) {
	mockOrders := new(MockOrderStore)
	mockOrders.On("Create", mock.Anything, mock.Anything).Return(nil)

	placer := newTestPlacer(mockOrders)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		order, err := placer.PlaceOrder(context.Background(), "CUST-1", testEntries(), 3.30)
		require.NoError(t, err)
		require.False(t, seen[order.OrderID], "duplicate order id %s", order.OrderID)
		seen[order.OrderID] = true
	}
}
