package chain

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "campuspark/internal/errors"
)

// Simulator is an in-process Bridge used when no gateway is configured
// and by tests. Transactions confirm after a configurable settle delay;
// individual submissions can be scripted to fail or be rejected.
type Simulator struct {
	mu          sync.Mutex
	seq         int
	settleAfter time.Duration
	txs         map[string]*simTx
	balances    map[string]int64
	failNext    bool
	rejectNext  bool
}

type simTx struct {
	submitted time.Time
	outcome   Status // terminal state once settleAfter elapses
	applied   bool
	address   string
	amount    int64
	kind      string
}

func NewSimulator() *Simulator {
	return &Simulator{
		txs:      make(map[string]*simTx),
		balances: make(map[string]int64),
	}
}

// SetSettleDelay makes every subsequent submission stay Pending for d
// before reaching its terminal state.
func (s *Simulator) SetSettleDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settleAfter = d
}

// FailNext makes the next submission settle as Failed.
func (s *Simulator) FailNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = true
}

// RejectNext makes the next submission error out instead of returning
// a reference, like a gateway that is down.
func (s *Simulator) RejectNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectNext = true
}

// Credit seeds an on-chain balance for an address.
func (s *Simulator) Credit(address string, amountCents int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[address] += amountCents
}

func (s *Simulator) SubmitDeposit(ctx context.Context, address string, amountCents int64) (string, error) {
	return s.submit(address, amountCents, "deposit")
}

func (s *Simulator) SubmitWithdrawal(ctx context.Context, address string, amountCents int64) (string, error) {
	return s.submit(address, amountCents, "withdrawal")
}

func (s *Simulator) MirrorRegisterUser(ctx context.Context, address, name string) (string, error) {
	return s.submit(address, 0, "register")
}

func (s *Simulator) MirrorReserve(ctx context.Context, address, zoneID, plateNumber string, durationHours int) (string, error) {
	return s.submit(address, 0, "reserve")
}

func (s *Simulator) MirrorComplete(ctx context.Context, address, reservationCode string) (string, error) {
	return s.submit(address, 0, "complete")
}

func (s *Simulator) MirrorCancel(ctx context.Context, address, reservationCode string) (string, error) {
	return s.submit(address, 0, "cancel")
}

func (s *Simulator) submit(address string, amount int64, kind string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectNext {
		s.rejectNext = false
		return "", fmt.Errorf("%w: simulated gateway outage", apperrors.ErrChainSubmission)
	}
	outcome := StatusConfirmed
	if s.failNext {
		s.failNext = false
		outcome = StatusFailed
	}
	s.seq++
	ref := fmt.Sprintf("sim-%06d", s.seq)
	s.txs[ref] = &simTx{
		submitted: time.Now(),
		outcome:   outcome,
		address:   address,
		amount:    amount,
		kind:      kind,
	}
	return ref, nil
}

func (s *Simulator) PollStatus(ctx context.Context, ref string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[ref]
	if !ok {
		return "", fmt.Errorf("unknown transaction reference %s", ref)
	}
	if time.Since(tx.submitted) < s.settleAfter {
		return StatusPending, nil
	}
	if tx.outcome == StatusConfirmed && !tx.applied {
		tx.applied = true
		switch tx.kind {
		case "deposit":
			s.balances[tx.address] -= tx.amount
		case "withdrawal":
			s.balances[tx.address] += tx.amount
		}
	}
	return tx.outcome, nil
}

func (s *Simulator) BalanceOf(ctx context.Context, address string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[address], nil
}
