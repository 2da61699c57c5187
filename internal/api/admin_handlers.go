package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"campuspark/internal/db"
	"campuspark/internal/entities"
	"campuspark/internal/service"
)

type AdminHandler struct {
	Service *service.AdminService
}

func NewAdminHandler(svc *service.AdminService) *AdminHandler {
	return &AdminHandler{Service: svc}
}

func (h *AdminHandler) ListZones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, entities.NewZoneResponses(h.Service.ListZones()))
}

func (h *AdminHandler) CreateZone(w http.ResponseWriter, r *http.Request) {
	var req entities.ZoneResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	zone := db.Zone{
		ID:                req.ID,
		Name:              req.Name,
		TotalSlots:        req.TotalSlots,
		AvailableSlots:    req.TotalSlots,
		PriceCentsPerHour: db.ToCents(req.PricePerHour),
		Active:            true,
	}
	if err := h.Service.AddZone(zone); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entities.NewZoneResponse(zone))
}

func (h *AdminHandler) SetZonePrice(w http.ResponseWriter, r *http.Request) {
	zoneID := mux.Vars(r)["id"]
	var req struct {
		PricePerHour float64 `json:"price_per_hour"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.Service.SetZonePrice(zoneID, db.ToCents(req.PricePerHour)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Zone price updated"})
}

func (h *AdminHandler) SetZoneActive(w http.ResponseWriter, r *http.Request) {
	zoneID := mux.Vars(r)["id"]
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.Service.SetZoneActive(zoneID, req.Active); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Zone status updated"})
}

func (h *AdminHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	zoneID := r.URL.Query().Get("zone_id")
	status := db.ReservationStatus(r.URL.Query().Get("status"))
	list := h.Service.ListReservations(userID, zoneID, status)
	writeJSON(w, http.StatusOK, entities.NewReservationResponses(list))
}

// ReverseTopUp debits a confirmed card top-up out of the wallet and
// refunds the card payment.
func (h *AdminHandler) ReverseTopUp(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session"]
	tx, err := h.Service.ReverseTopUp(sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewTransactionResponse(tx))
}

func (h *AdminHandler) ForceCancelReservation(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	res, err := h.Service.ForceCancelReservation(code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewReservationResponse(res))
}
