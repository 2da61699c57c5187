package entities

import (
	"time"

	"campuspark/internal/db"
)

type ReservationRequest struct {
	UserID        string `json:"user_id"`
	ZoneID        string `json:"zone_id"`
	PlateNumber   string `json:"plate_number"`
	DurationHours int    `json:"duration_hours"`
}

type ReservationResponse struct {
	Code          string    `json:"code"`
	ZoneID        string    `json:"zone_id"`
	UserID        string    `json:"user_id"`
	PlateNumber   string    `json:"plate_number"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	DurationHours int       `json:"duration_hours"`
	RatePerHour   float64   `json:"rate_per_hour"`
	TotalCost     float64   `json:"total_cost"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewReservationResponse(res db.Reservation) ReservationResponse {
	return ReservationResponse{
		Code:          res.Code,
		ZoneID:        res.ZoneID,
		UserID:        res.UserID,
		PlateNumber:   res.PlateNumber,
		StartTime:     res.StartTime,
		EndTime:       res.EndTime,
		DurationHours: res.DurationHours,
		RatePerHour:   db.FromCents(res.RateCentsPerHour),
		TotalCost:     db.FromCents(res.TotalCostCents),
		Status:        string(res.Status),
		CreatedAt:     res.CreatedAt,
		UpdatedAt:     res.UpdatedAt,
	}
}

func NewReservationResponses(list []db.Reservation) []ReservationResponse {
	out := make([]ReservationResponse, 0, len(list))
	for _, res := range list {
		out = append(out, NewReservationResponse(res))
	}
	return out
}
