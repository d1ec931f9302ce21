package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kirana-erp/kirana-erp/internal/auth"
	"github.com/kirana-erp/kirana-erp/internal/billing"
	"github.com/kirana-erp/kirana-erp/internal/customers"
	"github.com/kirana-erp/kirana-erp/internal/inventory"
	"github.com/kirana-erp/kirana-erp/internal/ledger"
	"github.com/kirana-erp/kirana-erp/internal/reporting"
	"github.com/kirana-erp/kirana-erp/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager

	AuthHandler      *auth.Handler
	BillingHandler   *billing.Handler
	InventoryHandler *inventory.Handler
	CustomersHandler *customers.Handler
	LedgerHandler    *ledger.Handler
	MetricsHandler   *reporting.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(RequireTenant)
		r.Route("/bills", params.BillingHandler.MountRoutes)
		r.Route("/products", params.InventoryHandler.MountRoutes)
		r.Route("/customers", params.CustomersHandler.MountRoutes)
		r.Route("/ledger", params.LedgerHandler.MountRoutes)
		r.Route("/metrics", params.MetricsHandler.MountRoutes)
	})

	return r
}
