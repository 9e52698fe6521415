package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/grocer/services/assistant/internal/models"
	"example.com/grocer/services/assistant/internal/repositories"
)

// Mock customer directory for testing
type MockCustomerDirectory struct {
	mock.Mock
}

func (m *MockCustomerDirectory) GetPostcode(ctx context.Context, customerID string) (string, error) {
	args := m.Called(ctx, customerID)
	return args.String(0), args.Error(1)
}

// Mock slot store for testing
type MockSlotStore struct {
	mock.Mock
}

func (m *MockSlotStore) EarliestAvailable(ctx context.Context, postcode string, from, to time.Time) (*models.DeliverySlot, error) {
	args := m.Called(ctx, postcode, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DeliverySlot), args.Error(1)
}

func newTestScheduler(customers CustomerDirectory, slots SlotStore) *Scheduler {
	return &Scheduler{
		customers:       customers,
		slots:           slots,
		defaultPostcode: "SW1A",
		windowDays:      7,
		now:             func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) },
	}
}

func TestScheduleFindsEarliestSlot(t *testing.T) {
	slot := &models.DeliverySlot{
		SlotID:           "SLOT-1",
		SlotDate:         "2026-03-02",
		StartTime:        "09:00",
		EndTime:          "12:00",
		PostcodeCoverage: "E1,E2",
		Status:           models.SlotAvailable,
	}

	mockCustomers := new(MockCustomerDirectory)
	mockCustomers.On("GetPostcode", mock.Anything, "CUST-1").Return("E1", nil)

	mockSlots := new(MockSlotStore)
	mockSlots.On("EarliestAvailable", mock.Anything, "E1",
		time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC)).Return(slot, nil)

	scheduler := newTestScheduler(mockCustomers, mockSlots)
	got, err := scheduler.Schedule(context.Background(), "CUST-1")

	require.NoError(t, err)
	require.Equal(t, "SLOT-1", got.SlotID)
	mockSlots.AssertExpectations(t)
}

func TestScheduleUnknownCustomerFallsBackToDefaultRegion(t *testing.T) {
	mockCustomers := new(MockCustomerDirectory)
	mockCustomers.On("GetPostcode", mock.Anything, "CUST-unknown").Return("", repositories.ErrNotFound)

	mockSlots := new(MockSlotStore)
	mockSlots.On("EarliestAvailable", mock.Anything, "SW1A", mock.Anything, mock.Anything).
		Return(&models.DeliverySlot{SlotID: "SLOT-2"}, nil)

	scheduler := newTestScheduler(mockCustomers, mockSlots)
	got, err := scheduler.Schedule(context.Background(), "CUST-unknown")

	require.NoError(t, err)
	require.Equal(t, "SLOT-2", got.SlotID)
	mockSlots.AssertExpectations(t)
}

func TestScheduleNoSlotInWindow(t *testing.T) {
	mockCustomers := new(MockCustomerDirectory)
	mockCustomers.On("GetPostcode", mock.Anything, "CUST-1").Return("E1", nil)

	mockSlots := new(MockSlotStore)
	mockSlots.On("EarliestAvailable", mock.Anything, "E1", mock.Anything, mock.Anything).
		Return(nil, nil)

	scheduler := newTestScheduler(mockCustomers, mockSlots)
	got, err := scheduler.Schedule(context.Background(), "CUST-1")

	// No slot is a valid outcome, not an error
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestScheduleSurfacesStoreErrors(t *testing.T) {
	mockCustomers := new(MockCustomerDirectory)
	mockCustomers.On("GetPostcode", mock.Anything, "CUST-1").Return("", errors.New("connection refused"))

	scheduler := newTestScheduler(mockCustomers, new(MockSlotStore))
	got, err := scheduler.Schedule(context.Background(), "CUST-1")

	require.Error(t, err)
	require.Nil(t, got)
}
