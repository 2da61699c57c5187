package entities

import "campuspark/internal/db"

type ZoneResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	TotalSlots     int     `json:"total_slots"`
	AvailableSlots int     `json:"available_slots"`
	PricePerHour   float64 `json:"price_per_hour"`
	Active         bool    `json:"active"`
}

func NewZoneResponse(z db.Zone) ZoneResponse {
	return ZoneResponse{
		ID:             z.ID,
		Name:           z.Name,
		TotalSlots:     z.TotalSlots,
		AvailableSlots: z.AvailableSlots,
		PricePerHour:   db.FromCents(z.PriceCentsPerHour),
		Active:         z.Active,
	}
}

func NewZoneResponses(zones []db.Zone) []ZoneResponse {
	out := make([]ZoneResponse, 0, len(zones))
	for _, z := range zones {
		out = append(out, NewZoneResponse(z))
	}
	return out
}
