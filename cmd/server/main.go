package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/stripe/stripe-go/v82"

	"campuspark/internal/api"
	"campuspark/internal/auth"
	"campuspark/internal/chain"
	"campuspark/internal/config"
	"campuspark/internal/db"
	"campuspark/internal/ledger"
	"campuspark/internal/registry"
	"campuspark/internal/repository"
	"campuspark/internal/service"
)

// seedZones is used on first boot, before any zone rows exist.
var seedZones = []db.Zone{
	{ID: "main", Name: "Main Parking Lot", TotalSlots: 50, AvailableSlots: 50, PriceCentsPerHour: 250, Active: true},
	{ID: "gle", Name: "GLE Parking Lot", TotalSlots: 30, AvailableSlots: 30, PriceCentsPerHour: 200, Active: true},
	{ID: "back", Name: "Back Gate Parking", TotalSlots: 25, AvailableSlots: 25, PriceCentsPerHour: 150, Active: true},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	database, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := database.Ping(); err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}

	stripe.Key = cfg.StripeSecretKey

	zoneRepo := repository.NewZoneRepository(database)
	ledgerRepo := repository.NewLedgerRepository(database)
	reservationRepo := repository.NewReservationRepository(database)
	adminAuthRepo := repository.NewAdminAuthRepository(database)

	var bridge chain.Bridge
	if cfg.ChainGatewayURL != "" {
		bridge = chain.NewGatewayClient(cfg.ChainGatewayURL)
	} else {
		log.Println("CHAIN_GATEWAY_URL not set, using in-process chain simulator")
		bridge = chain.NewSimulator()
	}

	reg := registry.New(zoneRepo)
	zones, err := zoneRepo.ListZones()
	if err != nil {
		log.Fatalf("Failed to load zones: %v", err)
	}
	if len(zones) == 0 {
		zones = seedZones
	}
	for _, z := range zones {
		if err := reg.Add(z); err != nil {
			log.Fatalf("Failed to register zone %s: %v", z.ID, err)
		}
	}

	led := ledger.New(ledgerRepo, bridge,
		ledger.WithPollInterval(cfg.ChainPollInterval),
		ledger.WithConfirmWindow(cfg.ChainConfirmWindow),
	)
	users, err := ledgerRepo.ListUsers()
	if err != nil {
		log.Fatalf("Failed to load users: %v", err)
	}
	for _, u := range users {
		if err := led.RegisterUser(u); err != nil {
			log.Fatalf("Failed to restore user %s: %v", u.ID, err)
		}
	}
	txs, err := ledgerRepo.ListTransactions()
	if err != nil {
		log.Fatalf("Failed to load transactions: %v", err)
	}
	for _, tx := range txs {
		if err := led.LoadTransaction(tx); err != nil {
			log.Printf("Skipping transaction %s: %v", tx.ID, err)
		}
	}

	notifyService := service.NewNotifyService()
	svc := service.NewReservationService(reg, led, reservationRepo, bridge, notifyService)
	reservations, err := reservationRepo.ListReservations()
	if err != nil {
		log.Fatalf("Failed to load reservations: %v", err)
	}
	for _, res := range reservations {
		svc.LoadReservation(res)
	}

	stripeService := service.NewStripeService()
	adminService := service.NewAdminService(reg, svc, led, stripeService)
	adminAuthService := service.NewAdminAuthService(adminAuthRepo)
	jobService := service.NewJobService(svc, led)

	userHandler := api.NewUserReservationHandler(svc, led, reg)
	walletHandler := api.NewWalletHandler(led, stripeService)
	adminHandler := api.NewAdminHandler(adminService)
	adminAuthHandler := api.NewAdminAuthHandler(adminAuthService)
	stripeWebhookHandler := api.NewStripeWebhookHandler(cfg.StripeWebhookKey, led, notifyService)

	r := mux.NewRouter()

	// Public endpoints
	r.HandleFunc("/api/zones", userHandler.ListZones).Methods("GET")
	r.HandleFunc("/api/users", userHandler.RegisterUser).Methods("POST")
	r.HandleFunc("/api/reservations", userHandler.CreateReservation).Methods("POST")
	r.HandleFunc("/api/reservations/{code}", userHandler.GetReservation).Methods("GET")
	r.HandleFunc("/api/reservations/{code}/complete", userHandler.CompleteReservation).Methods("POST")
	r.HandleFunc("/api/reservations/{code}", userHandler.CancelReservation).Methods("DELETE")
	r.HandleFunc("/api/users/{id}/reservations", userHandler.ListUserReservations).Methods("GET")

	// Wallet endpoints
	r.HandleFunc("/api/users/{id}/balance", walletHandler.GetBalance).Methods("GET")
	r.HandleFunc("/api/users/{id}/balance/external", walletHandler.GetExternalBalance).Methods("GET")
	r.HandleFunc("/api/users/{id}/wallet", walletHandler.LinkWallet).Methods("POST")
	r.HandleFunc("/api/users/{id}/deposits", walletHandler.Deposit).Methods("POST")
	r.HandleFunc("/api/users/{id}/withdrawals", walletHandler.Withdraw).Methods("POST")
	r.HandleFunc("/api/users/{id}/transactions", walletHandler.ListTransactions).Methods("GET")
	r.HandleFunc("/api/users/{id}/topups", walletHandler.CreateTopUpSession).Methods("POST")

	// Stripe webhook
	r.HandleFunc("/api/stripe/webhook", stripeWebhookHandler.HandleWebhook).Methods("POST")

	// Admin endpoints (protected)
	r.HandleFunc("/admin/login", adminAuthHandler.Login).Methods("POST")
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(auth.AdminAuthMiddleware)
	admin.HandleFunc("/admins", adminAuthHandler.CreateAdmin).Methods("POST")
	admin.HandleFunc("/zones", adminHandler.ListZones).Methods("GET")
	admin.HandleFunc("/zones", adminHandler.CreateZone).Methods("POST")
	admin.HandleFunc("/zones/{id}/price", adminHandler.SetZonePrice).Methods("PUT")
	admin.HandleFunc("/zones/{id}/active", adminHandler.SetZoneActive).Methods("PUT")
	admin.HandleFunc("/reservations", adminHandler.ListReservations).Methods("GET")
	admin.HandleFunc("/reservations/{code}", adminHandler.ForceCancelReservation).Methods("DELETE")
	admin.HandleFunc("/topups/{session}/reversals", adminHandler.ReverseTopUp).Methods("POST")

	c := cron.New()
	c.AddFunc("@every 1m", jobService.CompleteExpiredReservations)
	c.AddFunc("@every 1m", jobService.FailStaleTransactions)
	c.Start()
	defer c.Stop()

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(r)

	log.Printf("Server running on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, handlers.LoggingHandler(os.Stdout, corsHandler)))
}
