package repository

import (
	"database/sql"
	"fmt"

	"campuspark/internal/db"
)

type ReservationRepository struct {
	DB *sql.DB
}

func NewReservationRepository(database *sql.DB) *ReservationRepository {
	return &ReservationRepository{DB: database}
}

// SaveReservation upserts a reservation snapshot. The engine owns the
// current state in memory; rows here are the durable history.
func (r *ReservationRepository) SaveReservation(res db.Reservation) error {
	query := `
		INSERT INTO reservations
			(code, zone_id, user_id, plate_number, start_time, end_time, duration_hours,
			 rate_cents_per_hour, total_cost_cents, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (code) DO UPDATE
		SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`
	_, err := r.DB.Exec(query,
		res.Code,
		res.ZoneID,
		res.UserID,
		res.PlateNumber,
		res.StartTime,
		res.EndTime,
		res.DurationHours,
		res.RateCentsPerHour,
		res.TotalCostCents,
		res.Status,
		res.CreatedAt,
		res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving reservation %s: %w", res.Code, err)
	}
	return nil
}

// ListReservations loads every stored reservation, used to rebuild the
// in-memory state at startup.
func (r *ReservationRepository) ListReservations() ([]db.Reservation, error) {
	query := `
		SELECT code, zone_id, user_id, plate_number, start_time, end_time, duration_hours,
		       rate_cents_per_hour, total_cost_cents, status, created_at, updated_at
		FROM reservations
		ORDER BY created_at`
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("querying reservations: %w", err)
	}
	defer rows.Close()

	var reservations []db.Reservation
	for rows.Next() {
		var res db.Reservation
		err := rows.Scan(
			&res.Code, &res.ZoneID, &res.UserID, &res.PlateNumber, &res.StartTime, &res.EndTime,
			&res.DurationHours, &res.RateCentsPerHour, &res.TotalCostCents, &res.Status,
			&res.CreatedAt, &res.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning reservation row: %w", err)
		}
		reservations = append(reservations, res)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reservation rows: %w", err)
	}
	return reservations, nil
}
