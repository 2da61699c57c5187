package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campuspark/internal/db"
	apperrors "campuspark/internal/errors"
	"campuspark/internal/ledger"
	"campuspark/internal/registry"
)

func newTestStack(t *testing.T) (*registry.Registry, *ledger.Service, *ReservationService) {
	t.Helper()
	reg := registry.New(nil)
	require.NoError(t, reg.Add(db.Zone{
		ID:                "main",
		Name:              "Main Lot",
		TotalSlots:        50,
		AvailableSlots:    50,
		PriceCentsPerHour: 250,
		Active:            true,
	}))
	led := ledger.New(nil, nil)
	svc := NewReservationService(reg, led, nil, nil, nil)
	return reg, led, svc
}

func addUser(t *testing.T, led *ledger.Service, id string, balanceCents int64) {
	t.Helper()
	require.NoError(t, led.RegisterUser(db.User{
		ID:           id,
		Name:         "Test User",
		Email:        id + "@campus.edu",
		BalanceCents: balanceCents,
	}))
}

func mustBalance(t *testing.T, led *ledger.Service, userID string) int64 {
	t.Helper()
	balance, err := led.Balance(userID)
	require.NoError(t, err)
	return balance
}

func mustAvailable(t *testing.T, reg *registry.Registry, zoneID string) int {
	t.Helper()
	zone, err := reg.Get(zoneID)
	require.NoError(t, err)
	return zone.AvailableSlots
}

func TestCreateReservationChargesAndAllocates(t *testing.T) {
	reg, led, svc := newTestStack(t)
	addUser(t, led, "alice", 1000)

	res, err := svc.CreateReservation("alice", "main", "ABC-123", 3)
	require.NoError(t, err)

	assert.NotEmpty(t, res.Code)
	assert.Equal(t, db.ReservationActive, res.Status)
	assert.Equal(t, int64(250), res.RateCentsPerHour)
	assert.Equal(t, int64(750), res.TotalCostCents)
	assert.Equal(t, 3, res.DurationHours)
	assert.Equal(t, 3*time.Hour, res.EndTime.Sub(res.StartTime))

	assert.Equal(t, 49, mustAvailable(t, reg, "main"))
	assert.Equal(t, int64(250), mustBalance(t, led, "alice"))

	txs, err := led.Transactions("alice")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, db.TxPayment, txs[0].Kind)
	assert.Equal(t, db.TxConfirmed, txs[0].Status)
	assert.Equal(t, int64(750), txs[0].AmountCents)
}

func TestCreateReservationValidation(t *testing.T) {
	_, led, svc := newTestStack(t)
	addUser(t, led, "alice", 1000)

	_, err := svc.CreateReservation("alice", "main", "ABC-123", 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.CreateReservation("alice", "main", "", 2)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCreateReservationUnknownZone(t *testing.T) {
	_, led, svc := newTestStack(t)
	addUser(t, led, "alice", 1000)

	_, err := svc.CreateReservation("alice", "rooftop", "ABC-123", 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCreateReservationInactiveZone(t *testing.T) {
	reg, led, svc := newTestStack(t)
	addUser(t, led, "alice", 1000)
	require.NoError(t, reg.SetActive("main", false))

	_, err := svc.CreateReservation("alice", "main", "ABC-123", 1)
	assert.ErrorIs(t, err, apperrors.ErrZoneInactive)
	assert.Equal(t, 50, mustAvailable(t, reg, "main"))
}

// A charge that bounces must hand the slot back and leave the ledger
// exactly as it was.
func TestCreateReservationInsufficientFundsReleasesSlot(t *testing.T) {
	reg, led, svc := newTestStack(t)
	addUser(t, led, "alice", 500)

	_, err := svc.CreateReservation("alice", "main", "ABC-123", 3)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

	assert.Equal(t, 50, mustAvailable(t, reg, "main"))
	assert.Equal(t, int64(500), mustBalance(t, led, "alice"))
	txs, err := led.Transactions("alice")
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.Empty(t, svc.ListReservations("alice", "", ""))
}

func TestLastSlotGoesToExactlyOneReservation(t *testing.T) {
	reg := registry.New(nil)
	require.NoError(t, reg.Add(db.Zone{
		ID:                "tiny",
		Name:              "Tiny Lot",
		TotalSlots:        1,
		AvailableSlots:    1,
		PriceCentsPerHour: 100,
		Active:            true,
	}))
	led := ledger.New(nil, nil)
	svc := NewReservationService(reg, led, nil, nil, nil)
	addUser(t, led, "alice", 1000)
	addUser(t, led, "bob", 1000)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, userID := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			_, errs[i] = svc.CreateReservation(userID, "tiny", "PLT-001", 1)
		}(i, userID)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrSlotUnavailable)
			losses++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)
	assert.Equal(t, 0, mustAvailable(t, reg, "tiny"))
}

func TestCancelRefundsAndReleases(t *testing.T) {
	reg, led, svc := newTestStack(t)
	addUser(t, led, "alice", 1000)

	res, err := svc.CreateReservation("alice", "main", "ABC-123", 2)
	require.NoError(t, err)
	require.Equal(t, int64(500), mustBalance(t, led, "alice"))

	cancelled, err := svc.CancelReservation(res.Code)
	require.NoError(t, err)
	assert.Equal(t, db.ReservationCancelled, cancelled.Status)

	assert.Equal(t, 50, mustAvailable(t, reg, "main"))
	assert.Equal(t, int64(1000), mustBalance(t, led, "alice"))

	txs, err := led.Transactions("alice")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, db.TxRefund, txs[0].Kind)
	assert.Equal(t, int64(500), txs[0].AmountCents)
}

func TestCancelTwiceHasOneEffect(t *testing.T) {
	reg, led, svc := newTestStack(t)
	addUser(t, led, "alice", 1000)

	res, err := svc.CreateReservation("alice", "main", "ABC-123", 2)
	require.NoError(t, err)

	_, err = svc.CancelReservation(res.Code)
	require.NoError(t, err)

	_, err = svc.CancelReservation(res.Code)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	_, err = svc.CompleteReservation(res.Code)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	// One refund, one release, no matter how often terminal calls retry.
	assert.Equal(t, int64(1000), mustBalance(t, led, "alice"))
	assert.Equal(t, 50, mustAvailable(t, reg, "main"))
}

func TestCompleteReleasesWithoutRefund(t *testing.T) {
	reg, led, svc := newTestStack(t)
	addUser(t, led, "alice", 1000)

	res, err := svc.CreateReservation("alice", "main", "ABC-123", 2)
	require.NoError(t, err)

	completed, err := svc.CompleteReservation(res.Code)
	require.NoError(t, err)
	assert.Equal(t, db.ReservationCompleted, completed.Status)

	assert.Equal(t, 50, mustAvailable(t, reg, "main"))
	assert.Equal(t, int64(500), mustBalance(t, led, "alice"))
}

func TestCancelUnknownReservation(t *testing.T) {
	_, _, svc := newTestStack(t)

	_, err := svc.CancelReservation("DEADBEEF")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// Changing the zone price only affects reservations made afterwards;
// the charged rate is frozen into the record.
func TestPriceChangeIsNotRetroactive(t *testing.T) {
	reg, led, svc := newTestStack(t)
	addUser(t, led, "alice", 2000)

	res, err := svc.CreateReservation("alice", "main", "ABC-123", 2)
	require.NoError(t, err)
	require.NoError(t, reg.SetPrice("main", 400))

	got, err := svc.GetReservation(res.Code)
	require.NoError(t, err)
	assert.Equal(t, int64(250), got.RateCentsPerHour)
	assert.Equal(t, int64(500), got.TotalCostCents)

	// Cancelling refunds the charged amount, not the new rate.
	_, err = svc.CancelReservation(res.Code)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), mustBalance(t, led, "alice"))

	// A fresh reservation picks up the new rate.
	res2, err := svc.CreateReservation("alice", "main", "ABC-123", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(400), res2.RateCentsPerHour)
	assert.Equal(t, int64(800), res2.TotalCostCents)
}

func TestListReservationsFilters(t *testing.T) {
	reg, led, svc := newTestStack(t)
	require.NoError(t, reg.Add(db.Zone{
		ID:                "gle",
		Name:              "GLE Lot",
		TotalSlots:        30,
		AvailableSlots:    30,
		PriceCentsPerHour: 200,
		Active:            true,
	}))
	addUser(t, led, "alice", 5000)
	addUser(t, led, "bob", 5000)

	resA, err := svc.CreateReservation("alice", "main", "AAA-111", 1)
	require.NoError(t, err)
	_, err = svc.CreateReservation("alice", "gle", "AAA-111", 1)
	require.NoError(t, err)
	resB, err := svc.CreateReservation("bob", "main", "BBB-222", 1)
	require.NoError(t, err)
	_, err = svc.CancelReservation(resB.Code)
	require.NoError(t, err)

	assert.Len(t, svc.ListReservations("", "", ""), 3)
	assert.Len(t, svc.ListReservations("alice", "", ""), 2)
	assert.Len(t, svc.ListReservations("", "main", ""), 2)
	assert.Len(t, svc.ListReservations("", "", db.ReservationCancelled), 1)

	byAliceMain := svc.ListReservations("alice", "main", db.ReservationActive)
	require.Len(t, byAliceMain, 1)
	assert.Equal(t, resA.Code, byAliceMain[0].Code)
}

func TestExpiredSweepCompletesOverdueReservations(t *testing.T) {
	reg, led, svc := newTestStack(t)
	addUser(t, led, "alice", 1000)

	// Model a reservation restored from storage whose window already
	// closed, with its slot still held.
	require.NoError(t, reg.TryAllocate("main"))
	now := time.Now().UTC()
	svc.LoadReservation(db.Reservation{
		Code:             "0000CAFE",
		ZoneID:           "main",
		UserID:           "alice",
		PlateNumber:      "ABC-123",
		StartTime:        now.Add(-3 * time.Hour),
		EndTime:          now.Add(-1 * time.Hour),
		DurationHours:    2,
		RateCentsPerHour: 250,
		TotalCostCents:   500,
		Status:           db.ReservationActive,
		CreatedAt:        now.Add(-3 * time.Hour),
		UpdatedAt:        now.Add(-3 * time.Hour),
	})

	jobs := NewJobService(svc, led)
	jobs.CompleteExpiredReservations()

	got, err := svc.GetReservation("0000CAFE")
	require.NoError(t, err)
	assert.Equal(t, db.ReservationCompleted, got.Status)
	assert.Equal(t, 50, mustAvailable(t, reg, "main"))
	// Expiry is not a cancellation, so the charge stands.
	assert.Equal(t, int64(1000), mustBalance(t, led, "alice"))
}
