package service

import (
	"fmt"
	"log"

	"campuspark/internal/db"
	apperrors "campuspark/internal/errors"
	"campuspark/internal/ledger"
	"campuspark/internal/registry"
)

// TopUpRefunder refunds the card payment behind a checkout session.
// Implemented by StripeService; may be nil when card payments are
// disabled.
type TopUpRefunder interface {
	RefundTopUpBySessionID(sessionID string) error
}

// AdminService is the thin privileged surface over the registry, the
// ledger and the reservation service. It adds no logic of its own
// beyond top-up reversal.
type AdminService struct {
	registry           *registry.Registry
	reservationService *ReservationService
	ledger             *ledger.Service
	refunder           TopUpRefunder
}

func NewAdminService(reg *registry.Registry, reservationService *ReservationService, led *ledger.Service, refunder TopUpRefunder) *AdminService {
	return &AdminService{
		registry:           reg,
		reservationService: reservationService,
		ledger:             led,
		refunder:           refunder,
	}
}

func (s *AdminService) ListZones() []db.Zone {
	return s.registry.List()
}

func (s *AdminService) AddZone(z db.Zone) error {
	return s.registry.Add(z)
}

func (s *AdminService) SetZonePrice(zoneID string, priceCentsPerHour int64) error {
	return s.registry.SetPrice(zoneID, priceCentsPerHour)
}

func (s *AdminService) SetZoneActive(zoneID string, active bool) error {
	return s.registry.SetActive(zoneID, active)
}

// ForceCancelReservation cancels any Active reservation on the user's
// behalf, with the usual full refund.
func (s *AdminService) ForceCancelReservation(code string) (db.Reservation, error) {
	return s.reservationService.CancelReservation(code)
}

func (s *AdminService) ListReservations(userID, zoneID string, status db.ReservationStatus) []db.Reservation {
	return s.reservationService.ListReservations(userID, zoneID, status)
}

// ReverseTopUp takes a confirmed card top-up back out of the wallet and
// refunds the card payment behind it. The wallet is debited first; if
// the card refund then fails the debit is returned, so the two sides
// never disagree.
func (s *AdminService) ReverseTopUp(sessionID string) (db.Transaction, error) {
	if s.refunder == nil {
		return db.Transaction{}, fmt.Errorf("%w: card payments are not configured", apperrors.ErrValidation)
	}
	tx, err := s.ledger.TransactionByRef(sessionID)
	if err != nil {
		return db.Transaction{}, err
	}
	if tx.Kind != db.TxCardTopUp || tx.Status != db.TxConfirmed {
		return db.Transaction{}, fmt.Errorf("transaction %s is a %s %s: %w", tx.ID, tx.Status, tx.Kind, apperrors.ErrInvalidState)
	}

	debit, err := s.ledger.Charge(tx.UserID, tx.AmountCents)
	if err != nil {
		return db.Transaction{}, err
	}
	if err := s.refunder.RefundTopUpBySessionID(sessionID); err != nil {
		if _, refErr := s.ledger.Refund(tx.UserID, tx.AmountCents); refErr != nil {
			log.Printf("restoring wallet debit after failed card refund for session %s: %v", sessionID, refErr)
		}
		return db.Transaction{}, fmt.Errorf("refunding card payment for session %s: %w", sessionID, err)
	}
	return debit, nil
}
