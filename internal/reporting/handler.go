package reporting

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kirana-erp/kirana-erp/internal/platform/httpx"
	"github.com/kirana-erp/kirana-erp/internal/shared"
)

// Handler serves the metrics dashboard endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
	printer *message.Printer
}

// NewHandler builds Handler instance. Amounts are echoed as display strings
// with Indian digit grouping alongside the raw numbers.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
		printer: message.NewPrinter(language.MustParse("en-IN")),
	}
}

// MountRoutes registers metrics routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.metrics)
}

type metricsResponse struct {
	Metrics
	Display map[string]string `json:"display"`
}

func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseWindow(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	metrics, err := h.service.QueryMetrics(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, shared.ErrTenantRequired) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
			return
		}
		h.logger.Error("query metrics", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, metricsResponse{
		Metrics: metrics,
		Display: map[string]string{
			"sales":             h.rupees(metrics.Sales),
			"revenue":           h.rupees(metrics.Revenue),
			"profit":            h.rupees(metrics.Profit),
			"receivable":        h.rupees(metrics.Receivable),
			"cheques_in_flight": h.rupees(metrics.ChequesInFlight),
		},
	})
}

func (h *Handler) rupees(amount float64) string {
	return h.printer.Sprintf("₹%.2f", amount)
}

func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	const layout = "2006-01-02"
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := now

	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse(layout, v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be YYYY-MM-DD")
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse(layout, v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be YYYY-MM-DD")
		}
		// Include the whole day.
		to = parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return from, to, nil
}
