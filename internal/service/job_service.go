package service

import (
	"log"
	"time"

	"campuspark/internal/ledger"
)

type JobService struct {
	reservationService *ReservationService
	ledger             *ledger.Service
}

func NewJobService(reservationService *ReservationService, led *ledger.Service) *JobService {
	return &JobService{reservationService: reservationService, ledger: led}
}

// CompleteExpiredReservations finds Active reservations past their end
// time and completes them, freeing their slots. No refund: the paid-for
// window was used.
func (s *JobService) CompleteExpiredReservations() {
	codes := s.reservationService.ExpiredActiveCodes(time.Now().UTC())
	if len(codes) == 0 {
		return
	}

	log.Printf("Cron Job: completing %d reservations past their end time", len(codes))
	for _, code := range codes {
		if _, err := s.reservationService.CompleteReservation(code); err != nil {
			// InvalidState here just means another caller got there first.
			log.Printf("Cron Job: completing reservation %s: %v", code, err)
		}
	}
}

// FailStaleTransactions resolves Pending deposits and withdrawals that
// outlived the confirmation window, restoring withdrawn balances. This
// also covers settlements lost to a process restart.
func (s *JobService) FailStaleTransactions() {
	if n := s.ledger.FailStalePending(); n > 0 {
		log.Printf("Cron Job: failed %d stale pending transactions", n)
	}
}
