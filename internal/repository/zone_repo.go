package repository

import (
	"database/sql"
	"fmt"

	"campuspark/internal/db"
)

type ZoneRepository struct {
	DB *sql.DB
}

func NewZoneRepository(database *sql.DB) *ZoneRepository {
	return &ZoneRepository{DB: database}
}

func (r *ZoneRepository) SaveZone(z db.Zone) error {
	query := `
		INSERT INTO zones (id, name, total_slots, available_slots, price_cents_per_hour, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, total_slots = EXCLUDED.total_slots,
		    available_slots = EXCLUDED.available_slots,
		    price_cents_per_hour = EXCLUDED.price_cents_per_hour, active = EXCLUDED.active`
	_, err := r.DB.Exec(query, z.ID, z.Name, z.TotalSlots, z.AvailableSlots, z.PriceCentsPerHour, z.Active)
	if err != nil {
		return fmt.Errorf("saving zone %s: %w", z.ID, err)
	}
	return nil
}

func (r *ZoneRepository) ListZones() ([]db.Zone, error) {
	rows, err := r.DB.Query(`SELECT id, name, total_slots, available_slots, price_cents_per_hour, active FROM zones ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying zones: %w", err)
	}
	defer rows.Close()

	var zones []db.Zone
	for rows.Next() {
		var z db.Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.TotalSlots, &z.AvailableSlots, &z.PriceCentsPerHour, &z.Active); err != nil {
			return nil, fmt.Errorf("scanning zone row: %w", err)
		}
		zones = append(zones, z)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating zone rows: %w", err)
	}
	return zones, nil
}
