package entities

import (
	"time"

	"campuspark/internal/db"
)

type RegisterUserRequest struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	ExternalAddress string `json:"external_address"`
}

type LinkWalletRequest struct {
	Address string `json:"address"`
}

type AmountRequest struct {
	Amount float64 `json:"amount"`
}

type BalanceResponse struct {
	UserID  string  `json:"user_id"`
	Balance float64 `json:"balance"`
}

type ExternalBalanceResponse struct {
	UserID          string  `json:"user_id"`
	ExternalAddress string  `json:"external_address"`
	Balance         float64 `json:"balance"`
}

type TransactionResponse struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Amount      float64   `json:"amount"`
	Status      string    `json:"status"`
	ExternalRef string    `json:"external_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewTransactionResponse(tx db.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          tx.ID,
		Kind:        string(tx.Kind),
		Amount:      db.FromCents(tx.AmountCents),
		Status:      string(tx.Status),
		ExternalRef: tx.ExternalRef,
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
	}
}

func NewTransactionResponses(txs []db.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, NewTransactionResponse(tx))
	}
	return out
}

type TopUpSessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}
