package service

import (
	"fmt"
	"log"

	"campuspark/internal/db"
)

// NotifyService turns engine events into emails and SMS. Sends are
// asynchronous and best-effort: a failed notification is logged, never
// propagated into the operation that triggered it.
type NotifyService struct{}

func NewNotifyService() *NotifyService {
	return &NotifyService{}
}

func (s *NotifyService) ReservationStatusChanged(res db.Reservation, user db.User) {
	var statusWord string
	switch res.Status {
	case db.ReservationActive:
		statusWord = "confirmed"
	case db.ReservationCompleted:
		statusWord = "completed"
	case db.ReservationCancelled:
		statusWord = "cancelled"
	default:
		statusWord = string(res.Status)
	}

	subject := fmt.Sprintf("Your CampusPark reservation is %s - Code: %s", statusWord, res.Code)
	body := fmt.Sprintf(
		"Hello %s,\n\nYour reservation at CampusPark is %s.\n\n"+
			"Reservation Details:\n"+
			"Reservation Code: %s\n"+
			"Zone: %s\n"+
			"Plate: %s\n"+
			"Start: %s\n"+
			"End: %s\n"+
			"Total: %.2f tokens\n\n"+
			"Thank you for choosing CampusPark.",
		user.Name, statusWord, res.Code, res.ZoneID, res.PlateNumber,
		res.StartTime.Format("02 Jan 2006 15:04 MST"),
		res.EndTime.Format("02 Jan 2006 15:04 MST"),
		db.FromCents(res.TotalCostCents),
	)

	if user.Email != "" {
		go func() {
			if err := SendEmailWithSendGrid(user.Email, user.Name, subject, body, ""); err != nil {
				log.Printf("ALERT (async): email for reservation %s failed: %v", res.Code, err)
			}
		}()
	}

	if user.Phone != "" {
		sms := fmt.Sprintf("CampusPark: Reservation %s has been %s!\nStart: %s.\nMore details in your email.",
			res.Code, statusWord, res.StartTime.Format("02/01 15:04"))
		go func() {
			if err := SendSMS(user.Phone, sms); err != nil {
				log.Printf("ALERT: reservation %s SMS to %s failed: %v", res.Code, user.Phone, err)
			}
		}()
	}
}

// WalletCredited is sent when a deposit reaches the wallet, e.g. after
// a card top-up checkout completes.
func (s *NotifyService) WalletCredited(user db.User, amountCents int64) {
	if user.Email == "" {
		return
	}
	subject := "Your CampusPark wallet has been topped up"
	body := fmt.Sprintf(
		"Hello %s,\n\n%.2f tokens were credited to your CampusPark wallet.\n\n"+
			"Thank you for choosing CampusPark.",
		user.Name, db.FromCents(amountCents),
	)
	go func() {
		if err := SendEmailWithSendGrid(user.Email, user.Name, subject, body, ""); err != nil {
			log.Printf("ALERT (async): wallet credit email for user %s failed: %v", user.ID, err)
		}
	}()
}
