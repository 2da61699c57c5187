package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"campuspark/internal/db"
	"campuspark/internal/entities"
	apperrors "campuspark/internal/errors"
	"campuspark/internal/ledger"
	"campuspark/internal/service"
)

type WalletHandler struct {
	Ledger *ledger.Service
	Stripe *service.StripeService
}

func NewWalletHandler(led *ledger.Service, stripeService *service.StripeService) *WalletHandler {
	return &WalletHandler{Ledger: led, Stripe: stripeService}
}

func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	balance, err := h.Ledger.Balance(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.BalanceResponse{UserID: userID, Balance: db.FromCents(balance)})
}

func (h *WalletHandler) GetExternalBalance(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	user, err := h.Ledger.GetUser(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	balance, err := h.Ledger.ExternalBalance(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.ExternalBalanceResponse{
		UserID:          userID,
		ExternalAddress: user.ExternalAddress,
		Balance:         db.FromCents(balance),
	})
}

func (h *WalletHandler) LinkWallet(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	var req entities.LinkWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.Ledger.LinkWallet(userID, req.Address); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Wallet linked."})
}

func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	var req entities.AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	tx, err := h.Ledger.Deposit(userID, db.ToCents(req.Amount))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, entities.NewTransactionResponse(tx))
}

func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	var req entities.AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	tx, err := h.Ledger.Withdraw(userID, db.ToCents(req.Amount))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, entities.NewTransactionResponse(tx))
}

func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	txs, err := h.Ledger.Transactions(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewTransactionResponses(txs))
}

// CreateTopUpSession opens a Stripe checkout for a card top-up and
// records the matching Pending deposit.
func (h *WalletHandler) CreateTopUpSession(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	var req entities.AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	amountCents := db.ToCents(req.Amount)
	if amountCents <= 0 {
		writeError(w, fmt.Errorf("%w: top-up amount must be positive", apperrors.ErrValidation))
		return
	}

	user, err := h.Ledger.GetUser(userID)
	if err != nil {
		writeError(w, err)
		return
	}

	description := fmt.Sprintf("CampusPark wallet top-up for %s", userID)
	url, sessionID, err := h.Stripe.CreateTopUpSession(amountCents, "usd", description, user.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.Ledger.BeginCardTopUp(userID, amountCents, sessionID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entities.TopUpSessionResponse{SessionID: sessionID, URL: url})
}
