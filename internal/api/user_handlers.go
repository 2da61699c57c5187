package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"campuspark/internal/db"
	"campuspark/internal/entities"
	"campuspark/internal/ledger"
	"campuspark/internal/registry"
	"campuspark/internal/service"
)

type UserReservationHandler struct {
	Service  *service.ReservationService
	Ledger   *ledger.Service
	Registry *registry.Registry
}

func NewUserReservationHandler(svc *service.ReservationService, led *ledger.Service, reg *registry.Registry) *UserReservationHandler {
	return &UserReservationHandler{Service: svc, Ledger: led, Registry: reg}
}

func (h *UserReservationHandler) ListZones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, entities.NewZoneResponses(h.Registry.List()))
}

func (h *UserReservationHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req entities.RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	user := db.User{
		ID:              req.ID,
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		ExternalAddress: req.ExternalAddress,
		CreatedAt:       time.Now().UTC(),
	}
	if err := h.Ledger.RegisterUser(user); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "User registered."})
}

func (h *UserReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req entities.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	res, err := h.Service.CreateReservation(req.UserID, req.ZoneID, req.PlateNumber, req.DurationHours)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entities.NewReservationResponse(res))
}

func (h *UserReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	res, err := h.Service.GetReservation(code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewReservationResponse(res))
}

func (h *UserReservationHandler) CompleteReservation(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	res, err := h.Service.CompleteReservation(code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewReservationResponse(res))
}

func (h *UserReservationHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	res, err := h.Service.CancelReservation(code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewReservationResponse(res))
}

func (h *UserReservationHandler) ListUserReservations(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	status := db.ReservationStatus(r.URL.Query().Get("status"))
	list := h.Service.ListReservations(userID, "", status)
	writeJSON(w, http.StatusOK, entities.NewReservationResponses(list))
}
