package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campuspark/internal/db"
	apperrors "campuspark/internal/errors"
	"campuspark/internal/ledger"
	"campuspark/internal/registry"
)

type fakeRefunder struct {
	sessions []string
	err      error
}

func (f *fakeRefunder) RefundTopUpBySessionID(sessionID string) error {
	f.sessions = append(f.sessions, sessionID)
	return f.err
}

func newAdminStack(t *testing.T, refunder TopUpRefunder) (*ledger.Service, *AdminService) {
	t.Helper()
	reg := registry.New(nil)
	led := ledger.New(nil, nil)
	svc := NewReservationService(reg, led, nil, nil, nil)
	return led, NewAdminService(reg, svc, led, refunder)
}

func confirmedTopUp(t *testing.T, led *ledger.Service, userID, sessionID string, amountCents int64) {
	t.Helper()
	_, err := led.BeginCardTopUp(userID, amountCents, sessionID)
	require.NoError(t, err)
	require.NoError(t, led.ResolveByRef(sessionID, true))
}

func TestReverseTopUpDebitsWalletAndRefundsCard(t *testing.T) {
	refunder := &fakeRefunder{}
	led, admin := newAdminStack(t, refunder)
	addUser(t, led, "alice", 0)
	confirmedTopUp(t, led, "alice", "cs_test_rev", 3000)

	debit, err := admin.ReverseTopUp("cs_test_rev")
	require.NoError(t, err)
	assert.Equal(t, db.TxPayment, debit.Kind)
	assert.Equal(t, int64(3000), debit.AmountCents)
	assert.Equal(t, []string{"cs_test_rev"}, refunder.sessions)

	balance, err := led.Balance("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestReverseTopUpRequiresConfirmedTopUp(t *testing.T) {
	refunder := &fakeRefunder{}
	led, admin := newAdminStack(t, refunder)
	addUser(t, led, "alice", 0)

	_, err := admin.ReverseTopUp("cs_unknown")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// Still pending: the webhook has not confirmed it yet.
	_, err = led.BeginCardTopUp("alice", 3000, "cs_pending")
	require.NoError(t, err)
	_, err = admin.ReverseTopUp("cs_pending")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	assert.Empty(t, refunder.sessions)
}

func TestReverseTopUpInsufficientFundsLeavesCardAlone(t *testing.T) {
	refunder := &fakeRefunder{}
	led, admin := newAdminStack(t, refunder)
	addUser(t, led, "alice", 0)
	confirmedTopUp(t, led, "alice", "cs_test_spent", 3000)

	// The credit was already spent, so there is nothing to debit.
	_, err := led.Charge("alice", 3000)
	require.NoError(t, err)

	_, err = admin.ReverseTopUp("cs_test_spent")
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
	assert.Empty(t, refunder.sessions)
}

func TestReverseTopUpRestoresDebitWhenCardRefundFails(t *testing.T) {
	refunder := &fakeRefunder{err: errors.New("stripe is down")}
	led, admin := newAdminStack(t, refunder)
	addUser(t, led, "alice", 0)
	confirmedTopUp(t, led, "alice", "cs_test_down", 3000)

	_, err := admin.ReverseTopUp("cs_test_down")
	require.Error(t, err)

	balance, err := led.Balance("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), balance)
}
