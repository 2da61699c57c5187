package db

import (
	"math"
	"time"
)

// Monetary amounts are stored as integer cents so that cost arithmetic
// stays exact at the currency's minor-unit precision.

// ToCents converts a decimal amount (e.g. 2.50 from an API request) to cents.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromCents converts cents back to a decimal amount for responses.
func FromCents(cents int64) float64 {
	return float64(cents) / 100
}

type Zone struct {
	ID                string
	Name              string
	TotalSlots        int
	AvailableSlots    int
	PriceCentsPerHour int64
	Active            bool
}

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
)

type Reservation struct {
	Code             string
	ZoneID           string
	UserID           string
	PlateNumber      string
	StartTime        time.Time
	EndTime          time.Time
	DurationHours    int
	RateCentsPerHour int64 // zone price snapshot at creation, immutable
	TotalCostCents   int64 // computed once at creation, immutable
	Status           ReservationStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type User struct {
	ID              string
	Name            string
	Email           string
	Phone           string
	ExternalAddress string // on-chain wallet address, optional
	BalanceCents    int64
	CreatedAt       time.Time
}

type TransactionKind string

const (
	TxDeposit    TransactionKind = "deposit"
	TxWithdrawal TransactionKind = "withdrawal"
	TxCardTopUp  TransactionKind = "card_topup"
	TxPayment    TransactionKind = "payment"
	TxRefund     TransactionKind = "refund"
)

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxConfirmed TransactionStatus = "confirmed"
	TxFailed    TransactionStatus = "failed"
)

// Transaction is one append-only ledger log entry. Payment and Refund
// entries are created already Confirmed; Deposit, Withdrawal and
// CardTopUp start Pending and transition exactly once to Confirmed or
// Failed. Deposits and Withdrawals settle against the chain; CardTopUps
// are resolved by the payment provider's webhook and follow its
// session lifetime, not the chain confirmation window.
type Transaction struct {
	ID          string
	UserID      string
	Kind        TransactionKind
	AmountCents int64
	Status      TransactionStatus
	ExternalRef string // chain tx hash or checkout session id, optional
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Admin struct {
	ID           int
	Email        string
	PasswordHash string
}
