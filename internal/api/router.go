package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/izposoja/internal/config"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// NewRouter builds the HTTP handler with all routes registered.
func NewRouter(db *sql.DB, jwtSecret string, cfg config.Config) (http.Handler, error) {
	open, close, err := cfg.Lending.WindowMinutes()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Lending.Location()
	if err != nil {
		return nil, err
	}

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	equipmentHandler := &EquipmentHandler{DB: db}
	requestsHandler := &RequestsHandler{
		DB:       db,
		Window:   store.Window{Open: open, Close: close, Loc: loc},
		LoanDays: cfg.Lending.LoanDays,
	}
	reportsHandler := &ReportsHandler{DB: db}

	authed := AuthMiddleware(jwtSecret, db)
	moderator := RequireRole(model.RoleModerator)
	admin := RequireRole(model.RoleAdmin)

	mux := http.NewServeMux()

	// Authentication.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.Handle("POST /api/auth/logout", authed(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("PUT /api/auth/password", authed(http.HandlerFunc(authHandler.ChangePassword)))

	// User management (admin only).
	mux.Handle("GET /api/users", authed(admin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authed(admin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authed(admin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authed(admin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authed(admin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authed(admin(http.HandlerFunc(usersHandler.Delete))))

	// Catalog: reads for every member, writes for admins.
	mux.Handle("GET /api/equipment", authed(http.HandlerFunc(equipmentHandler.List)))
	mux.Handle("GET /api/equipment/{id}", authed(http.HandlerFunc(equipmentHandler.Get)))
	mux.Handle("GET /api/equipment/{id}/image", authed(http.HandlerFunc(equipmentHandler.GetImage)))
	mux.Handle("GET /api/equipment/{id}/waitlist", authed(moderator(http.HandlerFunc(equipmentHandler.GetWaitlist))))
	mux.Handle("POST /api/equipment", authed(admin(http.HandlerFunc(equipmentHandler.Create))))
	mux.Handle("PUT /api/equipment/{id}", authed(admin(http.HandlerFunc(equipmentHandler.Update))))
	mux.Handle("POST /api/equipment/{id}/adjust", authed(admin(http.HandlerFunc(equipmentHandler.AdjustQuantity))))
	mux.Handle("DELETE /api/equipment/{id}", authed(admin(http.HandlerFunc(equipmentHandler.Delete))))
	mux.Handle("PUT /api/equipment/{id}/image", authed(admin(http.HandlerFunc(equipmentHandler.UploadImage))))

	// Custody lifecycle.
	mux.Handle("POST /api/requests", authed(http.HandlerFunc(requestsHandler.Create)))
	mux.Handle("GET /api/requests", authed(http.HandlerFunc(requestsHandler.List)))
	mux.Handle("GET /api/requests/{id}", authed(http.HandlerFunc(requestsHandler.Get)))
	mux.Handle("PUT /api/requests/{id}/status", authed(moderator(http.HandlerFunc(requestsHandler.SetStatus))))
	mux.Handle("POST /api/requests/{id}/force-return", authed(admin(http.HandlerFunc(requestsHandler.ForceReturn))))
	mux.Handle("POST /api/requests/{id}/transfer", authed(http.HandlerFunc(requestsHandler.Transfer)))
	mux.Handle("POST /api/requests/overdue-scan", authed(moderator(http.HandlerFunc(requestsHandler.OverdueScan))))

	// Reports.
	mux.Handle("GET /api/reports/chain-of-custody", authed(admin(http.HandlerFunc(reportsHandler.ChainOfCustody))))

	return LoggingMiddleware(mux), nil
}
