package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/punchamoorthee/payledger/internal/calendar"
	"github.com/punchamoorthee/payledger/internal/domain"
	"github.com/punchamoorthee/payledger/internal/service"
	"github.com/punchamoorthee/payledger/internal/store"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

type Handler struct {
	store     store.Store
	transfers *service.TransferService
	scheduler *service.PaymentScheduler
	logger    *zap.Logger

	loc *time.Location
	now func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithLocation sets the zone in which "today" is evaluated.
func WithLocation(loc *time.Location) Option {
	return func(h *Handler) { h.loc = loc }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func NewHandler(s store.Store, transfers *service.TransferService, scheduler *service.PaymentScheduler, logger *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		store:     s,
		transfers: transfers,
		scheduler: scheduler,
		logger:    logger,
		loc:       time.UTC,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the API on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheckHandler).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/accounts", h.CreateAccountHandler).Methods(http.MethodPost)
	v1.HandleFunc("/accounts/{id:[0-9]+}", h.GetAccountHandler).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{id:[0-9]+}/transfers", h.GetAccountTransfersHandler).Methods(http.MethodGet)
	v1.HandleFunc("/transfers", h.CreateTransferHandler).Methods(http.MethodPost)
	v1.HandleFunc("/transfers/{id:[0-9]+}", h.GetTransferHandler).Methods(http.MethodGet)
	v1.HandleFunc("/external-transfers", h.CreateExternalTransferHandler).Methods(http.MethodPost)
	v1.HandleFunc("/scheduled-payments", h.CreateScheduledPaymentHandler).Methods(http.MethodPost)
	v1.HandleFunc("/scheduled-payments/run", h.RunDuePaymentsHandler).Methods(http.MethodPost)
	v1.HandleFunc("/scheduled-payments/{id:[0-9]+}", h.GetScheduledPaymentHandler).Methods(http.MethodGet)
}

func (h *Handler) today() time.Time {
	return calendar.DateOf(h.now(), h.loc)
}

// endpoint carries the metric labels of one route through a request.
type endpoint struct {
	method string
	path   string
}

func (e endpoint) timer() *prometheus.Timer {
	return prometheus.NewTimer(httpRequestDuration.WithLabelValues(e.method, e.path))
}

func (e endpoint) count(status int) {
	httpRequestsTotal.WithLabelValues(e.method, e.path, strconv.Itoa(status)).Inc()
}

func (h *Handler) respond(w http.ResponseWriter, e endpoint, code int, payload any) {
	e.count(code)
	respondWithJSON(w, code, payload)
}

func (h *Handler) fail(w http.ResponseWriter, e endpoint, code int, message string) {
	e.count(code)
	respondWithError(w, code, message)
}

// failWith maps a domain error to its HTTP status.
func (h *Handler) failWith(w http.ResponseWriter, e endpoint, err error) {
	code, message := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("method", e.method),
			zap.String("endpoint", e.path),
			zap.Error(err),
		)
	}
	h.fail(w, e, code, message)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, "Amount must be non-negative with at most two decimal places"
	case errors.Is(err, domain.ErrInvalidDay):
		return http.StatusUnprocessableEntity, "Day must be between 1 and 31"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, "Insufficient balance"
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, "Account not found"
	case errors.Is(err, domain.ErrTransferNotFound):
		return http.StatusNotFound, "Transfer not found"
	case errors.Is(err, domain.ErrScheduledPaymentNotFound):
		return http.StatusNotFound, "Scheduled payment not found"
	case errors.Is(err, domain.ErrTransactionTimeout):
		return http.StatusServiceUnavailable, "Ledger busy, retry later"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
