package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"campuspark/internal/chain"
	"campuspark/internal/db"
	apperrors "campuspark/internal/errors"
	"campuspark/internal/ledger"
	"campuspark/internal/registry"
)

// ReservationStore persists reservation records write-behind.
type ReservationStore interface {
	SaveReservation(r db.Reservation) error
}

// Notifier is told about reservation lifecycle events. Implemented by
// NotifyService; may be nil when notifications are disabled.
type Notifier interface {
	ReservationStatusChanged(res db.Reservation, user db.User)
}

// ReservationService orchestrates the zone registry and the ledger to
// run the reservation lifecycle. It is the only component with
// cross-resource logic: it takes the zone's slot first, then the
// user's money, and compensates the slot if the charge fails. Locks of
// the two resources are never held at the same time.
type ReservationService struct {
	registry *registry.Registry
	ledger   *ledger.Service
	store    ReservationStore // may be nil
	bridge   chain.Bridge
	notifier Notifier // may be nil

	mu           sync.RWMutex
	reservations map[string]*db.Reservation
}

func NewReservationService(reg *registry.Registry, led *ledger.Service, store ReservationStore, bridge chain.Bridge, notifier Notifier) *ReservationService {
	return &ReservationService{
		registry:     reg,
		ledger:       led,
		store:        store,
		bridge:       bridge,
		notifier:     notifier,
		reservations: make(map[string]*db.Reservation),
	}
}

// LoadReservation restores a persisted reservation at startup.
func (s *ReservationService) LoadReservation(r db.Reservation) {
	s.mu.Lock()
	cp := r
	s.reservations[r.Code] = &cp
	s.mu.Unlock()
}

// CreateReservation allocates a slot, charges the wallet and records an
// Active reservation. On a failed charge the slot is released before
// the error is returned, so no allocation is ever left dangling.
func (s *ReservationService) CreateReservation(userID, zoneID, plateNumber string, durationHours int) (db.Reservation, error) {
	if durationHours <= 0 {
		return db.Reservation{}, fmt.Errorf("%w: duration must be at least one hour", apperrors.ErrValidation)
	}
	if plateNumber == "" {
		return db.Reservation{}, fmt.Errorf("%w: plate number is required", apperrors.ErrValidation)
	}

	zone, err := s.registry.Get(zoneID)
	if err != nil {
		return db.Reservation{}, err
	}
	if !zone.Active {
		return db.Reservation{}, fmt.Errorf("zone %s: %w", zoneID, apperrors.ErrZoneInactive)
	}

	if err := s.registry.TryAllocate(zoneID); err != nil {
		return db.Reservation{}, err
	}

	totalCost := zone.PriceCentsPerHour * int64(durationHours)
	if _, err := s.ledger.Charge(userID, totalCost); err != nil {
		// The slot must never remain allocated after a failed charge.
		if relErr := s.registry.Release(zoneID); relErr != nil {
			log.Printf("releasing zone %s after failed charge: %v", zoneID, relErr)
		}
		return db.Reservation{}, err
	}

	now := time.Now().UTC()
	res := &db.Reservation{
		ZoneID:           zoneID,
		UserID:           userID,
		PlateNumber:      plateNumber,
		StartTime:        now,
		EndTime:          now.Add(time.Duration(durationHours) * time.Hour),
		DurationHours:    durationHours,
		RateCentsPerHour: zone.PriceCentsPerHour,
		TotalCostCents:   totalCost,
		Status:           db.ReservationActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	s.mu.Lock()
	res.Code = s.newCodeLocked()
	s.reservations[res.Code] = res
	s.mu.Unlock()

	s.persist(*res)
	s.mirror(*res)
	s.notify(*res)
	return *res, nil
}

// CompleteReservation ends an Active reservation and frees its slot.
// No refund is issued.
func (s *ReservationService) CompleteReservation(code string) (db.Reservation, error) {
	res, err := s.transition(code, db.ReservationCompleted)
	if err != nil {
		return db.Reservation{}, err
	}
	if relErr := s.registry.Release(res.ZoneID); relErr != nil {
		log.Printf("releasing zone %s for completed reservation %s: %v", res.ZoneID, code, relErr)
	}

	s.persist(res)
	s.mirror(res)
	s.notify(res)
	return res, nil
}

// CancelReservation ends an Active reservation, frees its slot and
// refunds the full original charge. A second cancel (or complete) on
// the same code is rejected with no further ledger or slot effect.
func (s *ReservationService) CancelReservation(code string) (db.Reservation, error) {
	res, err := s.transition(code, db.ReservationCancelled)
	if err != nil {
		return db.Reservation{}, err
	}
	if relErr := s.registry.Release(res.ZoneID); relErr != nil {
		log.Printf("releasing zone %s for cancelled reservation %s: %v", res.ZoneID, code, relErr)
	}
	if _, refErr := s.ledger.Refund(res.UserID, res.TotalCostCents); refErr != nil {
		log.Printf("refunding %d cents to user %s for cancelled reservation %s: %v", res.TotalCostCents, res.UserID, code, refErr)
	}

	s.persist(res)
	s.mirror(res)
	s.notify(res)
	return res, nil
}

// transition moves an Active reservation to a terminal status. The
// status check and flip happen under one lock, so exactly one caller
// wins; everyone else gets InvalidState.
func (s *ReservationService) transition(code string, to db.ReservationStatus) (db.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[code]
	if !ok {
		return db.Reservation{}, fmt.Errorf("reservation %s: %w", code, apperrors.ErrNotFound)
	}
	if res.Status != db.ReservationActive {
		return db.Reservation{}, fmt.Errorf("reservation %s is %s: %w", code, res.Status, apperrors.ErrInvalidState)
	}
	res.Status = to
	res.UpdatedAt = time.Now().UTC()
	return *res, nil
}

// GetReservation returns a snapshot by code.
func (s *ReservationService) GetReservation(code string) (db.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.reservations[code]
	if !ok {
		return db.Reservation{}, fmt.Errorf("reservation %s: %w", code, apperrors.ErrNotFound)
	}
	return *res, nil
}

// ListReservations returns reservations filtered by user, zone and
// status; empty filters match everything. Newest first.
func (s *ReservationService) ListReservations(userID, zoneID string, status db.ReservationStatus) []db.Reservation {
	s.mu.RLock()
	out := make([]db.Reservation, 0, len(s.reservations))
	for _, res := range s.reservations {
		if userID != "" && res.UserID != userID {
			continue
		}
		if zoneID != "" && res.ZoneID != zoneID {
			continue
		}
		if status != "" && res.Status != status {
			continue
		}
		out = append(out, *res)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// ExpiredActiveCodes returns codes of Active reservations whose end
// time has passed, for the completion sweep.
func (s *ReservationService) ExpiredActiveCodes(now time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var codes []string
	for code, res := range s.reservations {
		if res.Status == db.ReservationActive && res.EndTime.Before(now) {
			codes = append(codes, code)
		}
	}
	return codes
}

// newCodeLocked generates an unused reservation code. Caller holds s.mu.
func (s *ReservationService) newCodeLocked() string {
	for i := 0; ; i++ {
		code := fmt.Sprintf("%08X", (time.Now().UnixNano()+int64(i))%0x100000000)
		if _, exists := s.reservations[code]; !exists {
			return code
		}
	}
}

func (s *ReservationService) persist(res db.Reservation) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveReservation(res); err != nil {
		log.Printf("persisting reservation %s: %v", res.Code, err)
	}
}

// mirror replays the lifecycle event on the chain contract. Local state
// is the authority; mirroring is fire-and-forget and never holds locks.
func (s *ReservationService) mirror(res db.Reservation) {
	if s.bridge == nil {
		return
	}
	user, err := s.ledger.GetUser(res.UserID)
	if err != nil || user.ExternalAddress == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		var mirrorErr error
		switch res.Status {
		case db.ReservationActive:
			_, mirrorErr = s.bridge.MirrorReserve(ctx, user.ExternalAddress, res.ZoneID, res.PlateNumber, res.DurationHours)
		case db.ReservationCompleted:
			_, mirrorErr = s.bridge.MirrorComplete(ctx, user.ExternalAddress, res.Code)
		case db.ReservationCancelled:
			_, mirrorErr = s.bridge.MirrorCancel(ctx, user.ExternalAddress, res.Code)
		}
		if mirrorErr != nil {
			log.Printf("mirroring reservation %s (%s) on chain: %v", res.Code, res.Status, mirrorErr)
		}
	}()
}

func (s *ReservationService) notify(res db.Reservation) {
	if s.notifier == nil {
		return
	}
	user, err := s.ledger.GetUser(res.UserID)
	if err != nil {
		log.Printf("looking up user %s for reservation %s notification: %v", res.UserID, res.Code, err)
		return
	}
	s.notifier.ReservationStatusChanged(res, user)
}
