package api

import (
	"net/http"

	"github.com/erazemk/mbaromire/internal/auth"
	"github.com/erazemk/mbaromire/internal/catalog"
	"github.com/erazemk/mbaromire/internal/reservation"
	"github.com/erazemk/mbaromire/internal/store"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(s store.Store, admin *auth.Admin, sys SystemInfo) http.Handler {
	mux := http.NewServeMux()

	cat := catalog.New(s)
	offersHandler := &OffersHandler{Catalog: cat}
	vendorsHandler := &VendorsHandler{Catalog: cat}
	reservationsHandler := &ReservationsHandler{Service: reservation.New(s)}
	authHandler := &AuthHandler{Admin: admin}
	systemHandler := &SystemHandler{Store: s, Info: sys}

	requireAdmin := AdminMiddleware(admin)

	// System.
	mux.HandleFunc("GET /{$}", systemHandler.Root)
	mux.HandleFunc("GET /api/health", systemHandler.Health)
	mux.HandleFunc("GET /api/cities", systemHandler.Cities)

	// Admin session.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)

	// Vendors.
	mux.HandleFunc("POST /api/vendors", vendorsHandler.Create)
	mux.HandleFunc("GET /api/vendors", vendorsHandler.List)

	// Offers: read (public), write (admin).
	mux.HandleFunc("GET /api/offers", offersHandler.List)
	mux.HandleFunc("GET /api/offers/{id}", offersHandler.Get)
	mux.HandleFunc("GET /api/offers/{id}/image", offersHandler.GetImage)
	mux.Handle("POST /api/offers", requireAdmin(http.HandlerFunc(offersHandler.Create)))
	mux.Handle("POST /api/offers/{id}/deactivate", requireAdmin(http.HandlerFunc(offersHandler.Deactivate)))
	mux.Handle("PUT /api/offers/{id}/image", requireAdmin(http.HandlerFunc(offersHandler.UploadImage)))

	// Reservations.
	mux.HandleFunc("POST /api/reservations", reservationsHandler.Create)
	mux.HandleFunc("GET /api/reservations/{id}", reservationsHandler.Get)
	mux.HandleFunc("POST /api/reservations/{id}/cancel", reservationsHandler.Cancel)
	mux.HandleFunc("POST /api/reservations/{id}/pickup", reservationsHandler.PickUp)

	return CORSMiddleware(mux)
}
