// Package ledger owns each user's off-chain balance and the append-only
// transaction log. A user's balance and log form one serialized
// resource guarded by that account's lock; different users never
// contend. Chain bridge calls are the only suspension points and happen
// strictly outside any account lock: submit, release the lock, apply
// the outcome later when polling resolves it.
package ledger

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"campuspark/internal/chain"
	"campuspark/internal/db"
	apperrors "campuspark/internal/errors"
)

// Store persists users and transactions write-behind. The in-memory
// accounts are the authority; persistence failures are logged, not
// propagated.
type Store interface {
	SaveUser(u db.User) error
	SaveTransaction(tx db.Transaction) error
}

type account struct {
	mu   sync.Mutex
	user db.User
	txs  map[string]*db.Transaction
	log  []*db.Transaction // append order
}

type Service struct {
	mu       sync.RWMutex
	accounts map[string]*account

	store  Store // may be nil
	bridge chain.Bridge

	pollInterval  time.Duration
	confirmWindow time.Duration
}

// Option configures optional Service behavior.
type Option func(*Service)

// WithPollInterval sets the initial interval between confirmation polls.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) { s.pollInterval = d }
}

// WithConfirmWindow bounds how long a submitted deposit or withdrawal
// may stay pending before it is treated as failed.
func WithConfirmWindow(d time.Duration) Option {
	return func(s *Service) { s.confirmWindow = d }
}

func New(store Store, bridge chain.Bridge, opts ...Option) *Service {
	s := &Service{
		accounts:      make(map[string]*account),
		store:         store,
		bridge:        bridge,
		pollInterval:  2 * time.Second,
		confirmWindow: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterUser creates or reloads a user's account.
func (s *Service) RegisterUser(u db.User) error {
	if u.ID == "" {
		return fmt.Errorf("%w: user id is required", apperrors.ErrValidation)
	}
	if u.BalanceCents < 0 {
		return fmt.Errorf("%w: balance may not be negative", apperrors.ErrValidation)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	if _, exists := s.accounts[u.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: user %s already registered", apperrors.ErrValidation, u.ID)
	}
	s.accounts[u.ID] = &account{user: u, txs: make(map[string]*db.Transaction)}
	s.mu.Unlock()

	s.persistUser(u)
	s.mirrorRegisterUser(u)
	return nil
}

// LoadTransaction restores a persisted log entry into memory, used at
// startup before any sweeps run.
func (s *Service) LoadTransaction(tx db.Transaction) error {
	acct, err := s.lookup(tx.UserID)
	if err != nil {
		return err
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()
	if _, exists := acct.txs[tx.ID]; exists {
		return nil
	}
	cp := tx
	acct.txs[tx.ID] = &cp
	acct.log = append(acct.log, &cp)
	return nil
}

func (s *Service) lookup(userID string) (*account, error) {
	s.mu.RLock()
	acct, ok := s.accounts[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, apperrors.ErrNotFound)
	}
	return acct, nil
}

// GetUser returns a snapshot of the user record.
func (s *Service) GetUser(userID string) (db.User, error) {
	acct, err := s.lookup(userID)
	if err != nil {
		return db.User{}, err
	}
	acct.mu.Lock()
	u := acct.user
	acct.mu.Unlock()
	return u, nil
}

// LinkWallet stores the user's external chain address.
func (s *Service) LinkWallet(userID, address string) error {
	if address == "" {
		return fmt.Errorf("%w: wallet address is required", apperrors.ErrValidation)
	}
	acct, err := s.lookup(userID)
	if err != nil {
		return err
	}
	acct.mu.Lock()
	acct.user.ExternalAddress = address
	u := acct.user
	acct.mu.Unlock()

	s.persistUser(u)
	s.mirrorRegisterUser(u)
	return nil
}

// mirrorRegisterUser registers the user's wallet on the chain contract
// so later mirrored reservations reference a known address. Best-effort
// and fire-and-forget, like the reservation mirrors.
func (s *Service) mirrorRegisterUser(u db.User) {
	if s.bridge == nil || u.ExternalAddress == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.bridge.MirrorRegisterUser(ctx, u.ExternalAddress, u.Name); err != nil {
			log.Printf("mirroring registration of user %s on chain: %v", u.ID, err)
		}
	}()
}

// Balance returns the user's current off-chain balance in cents.
func (s *Service) Balance(userID string) (int64, error) {
	acct, err := s.lookup(userID)
	if err != nil {
		return 0, err
	}
	acct.mu.Lock()
	b := acct.user.BalanceCents
	acct.mu.Unlock()
	return b, nil
}

// ExternalBalance reads the user's on-chain token balance through the
// bridge. Called without holding any account lock.
func (s *Service) ExternalBalance(ctx context.Context, userID string) (int64, error) {
	u, err := s.GetUser(userID)
	if err != nil {
		return 0, err
	}
	if u.ExternalAddress == "" {
		return 0, fmt.Errorf("%w: user %s has no linked wallet", apperrors.ErrValidation, userID)
	}
	return s.bridge.BalanceOf(ctx, u.ExternalAddress)
}

// Charge atomically verifies the balance covers amount, debits it and
// appends a Confirmed Payment entry. On insufficient funds nothing
// changes.
func (s *Service) Charge(userID string, amountCents int64) (db.Transaction, error) {
	if amountCents <= 0 {
		return db.Transaction{}, fmt.Errorf("%w: charge amount must be positive", apperrors.ErrValidation)
	}
	acct, err := s.lookup(userID)
	if err != nil {
		return db.Transaction{}, err
	}

	acct.mu.Lock()
	if acct.user.BalanceCents < amountCents {
		acct.mu.Unlock()
		return db.Transaction{}, fmt.Errorf("user %s: %w", userID, apperrors.ErrInsufficientFunds)
	}
	acct.user.BalanceCents -= amountCents
	tx := s.appendLocked(acct, db.TxPayment, amountCents, db.TxConfirmed, "")
	u := acct.user
	acct.mu.Unlock()

	s.persistUser(u)
	s.persistTx(tx)
	return tx, nil
}

// Refund credits amount back and appends a Confirmed Refund entry.
func (s *Service) Refund(userID string, amountCents int64) (db.Transaction, error) {
	if amountCents < 0 {
		return db.Transaction{}, fmt.Errorf("%w: refund amount may not be negative", apperrors.ErrValidation)
	}
	acct, err := s.lookup(userID)
	if err != nil {
		return db.Transaction{}, err
	}

	acct.mu.Lock()
	acct.user.BalanceCents += amountCents
	tx := s.appendLocked(acct, db.TxRefund, amountCents, db.TxConfirmed, "")
	u := acct.user
	acct.mu.Unlock()

	s.persistUser(u)
	s.persistTx(tx)
	return tx, nil
}

// Deposit appends a Pending Deposit and submits it to the chain in the
// background. The balance is only credited when the chain confirms.
func (s *Service) Deposit(userID string, amountCents int64) (db.Transaction, error) {
	if amountCents <= 0 {
		return db.Transaction{}, fmt.Errorf("%w: deposit amount must be positive", apperrors.ErrValidation)
	}
	acct, err := s.lookup(userID)
	if err != nil {
		return db.Transaction{}, err
	}

	acct.mu.Lock()
	if acct.user.ExternalAddress == "" {
		acct.mu.Unlock()
		return db.Transaction{}, fmt.Errorf("%w: user %s has no linked wallet", apperrors.ErrValidation, userID)
	}
	address := acct.user.ExternalAddress
	tx := s.appendLocked(acct, db.TxDeposit, amountCents, db.TxPending, "")
	acct.mu.Unlock()

	s.persistTx(tx)
	go s.settle(userID, tx.ID, db.TxDeposit, amountCents, address)
	return tx, nil
}

// Withdraw debits the balance pessimistically, appends a Pending
// Withdrawal and submits it in the background. A failed or timed-out
// submission restores the debited amount.
func (s *Service) Withdraw(userID string, amountCents int64) (db.Transaction, error) {
	if amountCents <= 0 {
		return db.Transaction{}, fmt.Errorf("%w: withdrawal amount must be positive", apperrors.ErrValidation)
	}
	acct, err := s.lookup(userID)
	if err != nil {
		return db.Transaction{}, err
	}

	acct.mu.Lock()
	if acct.user.ExternalAddress == "" {
		acct.mu.Unlock()
		return db.Transaction{}, fmt.Errorf("%w: user %s has no linked wallet", apperrors.ErrValidation, userID)
	}
	if acct.user.BalanceCents < amountCents {
		acct.mu.Unlock()
		return db.Transaction{}, fmt.Errorf("user %s: %w", userID, apperrors.ErrInsufficientFunds)
	}
	acct.user.BalanceCents -= amountCents
	address := acct.user.ExternalAddress
	tx := s.appendLocked(acct, db.TxWithdrawal, amountCents, db.TxPending, "")
	u := acct.user
	acct.mu.Unlock()

	s.persistUser(u)
	s.persistTx(tx)
	go s.settle(userID, tx.ID, db.TxWithdrawal, amountCents, address)
	return tx, nil
}

// BeginCardTopUp appends a Pending CardTopUp tied to a card checkout
// session. The payment webhook resolves it by reference; the stale
// sweep leaves it alone, since a checkout session may legitimately
// stay open far longer than a chain confirmation.
func (s *Service) BeginCardTopUp(userID string, amountCents int64, sessionID string) (db.Transaction, error) {
	if amountCents <= 0 {
		return db.Transaction{}, fmt.Errorf("%w: top-up amount must be positive", apperrors.ErrValidation)
	}
	if sessionID == "" {
		return db.Transaction{}, fmt.Errorf("%w: checkout session id is required", apperrors.ErrValidation)
	}
	acct, err := s.lookup(userID)
	if err != nil {
		return db.Transaction{}, err
	}

	acct.mu.Lock()
	tx := s.appendLocked(acct, db.TxCardTopUp, amountCents, db.TxPending, sessionID)
	acct.mu.Unlock()

	s.persistTx(tx)
	return tx, nil
}

// ResolveByRef resolves the pending transaction carrying the given
// external reference, searching all accounts. Used by payment webhooks.
func (s *Service) ResolveByRef(externalRef string, confirmed bool) error {
	tx, err := s.TransactionByRef(externalRef)
	if err != nil {
		return err
	}
	status := db.TxConfirmed
	if !confirmed {
		status = db.TxFailed
	}
	return s.resolve(tx.UserID, tx.ID, status)
}

// TransactionByRef returns the transaction carrying the given external
// reference, if any account holds one.
func (s *Service) TransactionByRef(externalRef string) (db.Transaction, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, userID := range ids {
		acct, err := s.lookup(userID)
		if err != nil {
			continue
		}
		acct.mu.Lock()
		for _, tx := range acct.log {
			if tx.ExternalRef == externalRef {
				cp := *tx
				acct.mu.Unlock()
				return cp, nil
			}
		}
		acct.mu.Unlock()
	}
	return db.Transaction{}, fmt.Errorf("transaction with reference %s: %w", externalRef, apperrors.ErrNotFound)
}

// Transactions returns the user's log, newest first.
func (s *Service) Transactions(userID string) ([]db.Transaction, error) {
	acct, err := s.lookup(userID)
	if err != nil {
		return nil, err
	}
	acct.mu.Lock()
	out := make([]db.Transaction, 0, len(acct.log))
	for _, tx := range acct.log {
		out = append(out, *tx)
	}
	acct.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// FailStalePending resolves Pending chain entries older than the
// confirm window to Failed, compensating withdrawals. Card top-ups are
// exempt: their session lives until the provider's expired webhook
// fails them. The per-transaction pending check in resolve makes this
// safe to run alongside in-flight settlement goroutines.
func (s *Service) FailStalePending() int {
	s.mu.RLock()
	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	cutoff := time.Now().Add(-s.confirmWindow)
	failed := 0
	for _, userID := range ids {
		acct, err := s.lookup(userID)
		if err != nil {
			continue
		}
		acct.mu.Lock()
		var stale []string
		for _, tx := range acct.log {
			if tx.Status == db.TxPending && tx.Kind != db.TxCardTopUp && tx.CreatedAt.Before(cutoff) {
				stale = append(stale, tx.ID)
			}
		}
		acct.mu.Unlock()

		for _, txID := range stale {
			if err := s.resolve(userID, txID, db.TxFailed); err == nil {
				failed++
			}
		}
	}
	return failed
}

// settle carries one submitted deposit or withdrawal to its terminal
// state: submit, then poll with bounded backoff until the confirm
// window closes. Runs outside every lock.
func (s *Service) settle(userID, txID string, kind db.TransactionKind, amountCents int64, address string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.confirmWindow)
	defer cancel()

	var ref string
	var err error
	switch kind {
	case db.TxDeposit:
		ref, err = s.bridge.SubmitDeposit(ctx, address, amountCents)
	case db.TxWithdrawal:
		ref, err = s.bridge.SubmitWithdrawal(ctx, address, amountCents)
	default:
		log.Printf("settle called with non-settling kind %s for tx %s", kind, txID)
		return
	}
	if err != nil {
		log.Printf("submitting %s %s for user %s: %v", kind, txID, userID, err)
		if rerr := s.resolve(userID, txID, db.TxFailed); rerr != nil {
			log.Printf("resolving %s %s after submit failure: %v", kind, txID, rerr)
		}
		return
	}
	s.setExternalRef(userID, txID, ref)

	interval := s.pollInterval
	for {
		select {
		case <-ctx.Done():
			// Neither confirmed nor failed inside the window: treat as
			// failed, which compensates withdrawals and leaves deposit
			// balances untouched.
			if rerr := s.resolve(userID, txID, db.TxFailed); rerr != nil {
				log.Printf("resolving %s %s after timeout: %v", kind, txID, rerr)
			}
			return
		case <-time.After(interval):
		}

		status, err := s.bridge.PollStatus(ctx, ref)
		if err != nil {
			log.Printf("polling %s for tx %s: %v", ref, txID, err)
		} else {
			switch status {
			case chain.StatusConfirmed:
				if rerr := s.resolve(userID, txID, db.TxConfirmed); rerr != nil {
					log.Printf("resolving %s %s as confirmed: %v", kind, txID, rerr)
				}
				return
			case chain.StatusFailed:
				if rerr := s.resolve(userID, txID, db.TxFailed); rerr != nil {
					log.Printf("resolving %s %s as failed: %v", kind, txID, rerr)
				}
				return
			}
		}
		if interval < 30*time.Second {
			interval *= 2
		}
	}
}

// resolve transitions a Pending transaction to its terminal state and
// applies the balance effect exactly once: a confirmed deposit credits
// the balance, a failed withdrawal restores the pessimistic debit.
// Resolving an already-terminal transaction is rejected, so concurrent
// settlement and sweep paths cannot double-apply.
func (s *Service) resolve(userID, txID string, status db.TransactionStatus) error {
	acct, err := s.lookup(userID)
	if err != nil {
		return err
	}

	acct.mu.Lock()
	tx, ok := acct.txs[txID]
	if !ok {
		acct.mu.Unlock()
		return fmt.Errorf("transaction %s: %w", txID, apperrors.ErrNotFound)
	}
	if tx.Status != db.TxPending {
		acct.mu.Unlock()
		return fmt.Errorf("transaction %s already %s: %w", txID, tx.Status, apperrors.ErrInvalidState)
	}
	tx.Status = status
	tx.UpdatedAt = time.Now().UTC()
	switch {
	case status == db.TxConfirmed && (tx.Kind == db.TxDeposit || tx.Kind == db.TxCardTopUp):
		acct.user.BalanceCents += tx.AmountCents
	case status == db.TxFailed && tx.Kind == db.TxWithdrawal:
		acct.user.BalanceCents += tx.AmountCents
	}
	txCopy := *tx
	u := acct.user
	acct.mu.Unlock()

	s.persistUser(u)
	s.persistTx(txCopy)
	return nil
}

func (s *Service) setExternalRef(userID, txID, ref string) {
	acct, err := s.lookup(userID)
	if err != nil {
		return
	}
	acct.mu.Lock()
	tx, ok := acct.txs[txID]
	if ok {
		tx.ExternalRef = ref
		tx.UpdatedAt = time.Now().UTC()
	}
	var txCopy db.Transaction
	if ok {
		txCopy = *tx
	}
	acct.mu.Unlock()

	if ok {
		s.persistTx(txCopy)
	}
}

// appendLocked creates and records a log entry. Caller holds acct.mu.
func (s *Service) appendLocked(acct *account, kind db.TransactionKind, amountCents int64, status db.TransactionStatus, externalRef string) db.Transaction {
	now := time.Now().UTC()
	tx := &db.Transaction{
		ID:          uuid.NewString(),
		UserID:      acct.user.ID,
		Kind:        kind,
		AmountCents: amountCents,
		Status:      status,
		ExternalRef: externalRef,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	acct.txs[tx.ID] = tx
	acct.log = append(acct.log, tx)
	return *tx
}

func (s *Service) persistUser(u db.User) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveUser(u); err != nil {
		log.Printf("persisting user %s: %v", u.ID, err)
	}
}

func (s *Service) persistTx(tx db.Transaction) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveTransaction(tx); err != nil {
		log.Printf("persisting transaction %s: %v", tx.ID, err)
	}
}
