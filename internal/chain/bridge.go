// Package chain talks to the campus token chain through its gateway
// service. Every call is a high-latency, unreliable network operation:
// submissions return a pending reference and the final outcome is only
// learned later by polling. Callers must never hold an internal lock
// across any of these calls.
package chain

import "context"

// Status is the gateway-reported state of a submitted transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Bridge is the narrow surface of the external chain the engine
// consumes. A real gateway client and the in-process Simulator both
// implement it, so the ledger logic is not tied to either.
type Bridge interface {
	// SubmitDeposit submits a token transfer from the user's wallet into
	// the parking contract. Returns a reference to poll.
	SubmitDeposit(ctx context.Context, address string, amountCents int64) (ref string, err error)

	// SubmitWithdrawal submits a token transfer from the parking
	// contract back to the user's wallet. Returns a reference to poll.
	SubmitWithdrawal(ctx context.Context, address string, amountCents int64) (ref string, err error)

	// PollStatus reports the current state of a submitted transaction.
	PollStatus(ctx context.Context, ref string) (Status, error)

	// BalanceOf reads the token balance held at an address.
	BalanceOf(ctx context.Context, address string) (int64, error)

	// The contract mirrors user registration and reservation lifecycle
	// events. Mirroring is best-effort bookkeeping on the chain side;
	// local state is the authority and never waits on these. Vehicle
	// identity travels with MirrorReserve's plate number, as the
	// contract registers plates per reservation.
	MirrorRegisterUser(ctx context.Context, address, name string) (ref string, err error)
	MirrorReserve(ctx context.Context, address, zoneID, plateNumber string, durationHours int) (ref string, err error)
	MirrorComplete(ctx context.Context, address, reservationCode string) (ref string, err error)
	MirrorCancel(ctx context.Context, address, reservationCode string) (ref string, err error)
}
