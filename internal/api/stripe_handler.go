package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"campuspark/internal/ledger"
	"campuspark/internal/service"
)

type StripeWebhookHandler struct {
	StripeSecret  string
	ledger        *ledger.Service
	notifyService *service.NotifyService
}

func NewStripeWebhookHandler(stripeSecret string, led *ledger.Service, notifyService *service.NotifyService) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		StripeSecret:  stripeSecret,
		ledger:        led,
		notifyService: notifyService,
	}
}

// HandleWebhook resolves pending card top-ups: a completed checkout
// session confirms the deposit and credits the wallet, an expired one
// fails it with no balance change.
func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("Error reading body: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sigHeader, h.StripeSecret)
	if err != nil {
		log.Printf("Webhook signature verification failed: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		sess, ok := h.parseSession(w, event.Data.Raw)
		if !ok {
			return
		}
		if err := h.ledger.ResolveByRef(sess.ID, true); err != nil {
			log.Printf("Confirming top-up for session %s: %v", sess.ID, err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		h.notifyTopUp(sess.ID)

	case "checkout.session.expired":
		sess, ok := h.parseSession(w, event.Data.Raw)
		if !ok {
			return
		}
		if err := h.ledger.ResolveByRef(sess.ID, false); err != nil {
			log.Printf("Failing top-up for session %s: %v", sess.ID, err)
		}

	default:
		log.Printf("Unhandled event type: %s", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *StripeWebhookHandler) parseSession(w http.ResponseWriter, raw json.RawMessage) (stripe.CheckoutSession, bool) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		log.Printf("Error parsing checkout.session: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return sess, false
	}
	if sess.ID == "" {
		log.Printf("No session ID in checkout session event")
		w.WriteHeader(http.StatusBadRequest)
		return sess, false
	}
	return sess, true
}

func (h *StripeWebhookHandler) notifyTopUp(sessionID string) {
	if h.notifyService == nil {
		return
	}
	// Find the confirmed transaction to learn user and amount.
	// ResolveByRef just succeeded, so the entry exists.
	tx, err := h.ledger.TransactionByRef(sessionID)
	if err != nil {
		log.Printf("Looking up top-up transaction for session %s: %v", sessionID, err)
		return
	}
	user, err := h.ledger.GetUser(tx.UserID)
	if err != nil {
		return
	}
	h.notifyService.WalletCredited(user, tx.AmountCents)
}
