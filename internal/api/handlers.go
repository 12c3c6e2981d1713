package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/punchamoorthee/payledger/internal/calendar"
	"github.com/punchamoorthee/payledger/internal/models"
	"github.com/punchamoorthee/payledger/internal/service"
)

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	e := endpoint{http.MethodPost, "/accounts"}
	timer := e.timer()
	defer timer.ObserveDuration()

	var req models.CreateAccountRequest
	// An empty body opens the account with a zero balance.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.fail(w, e, http.StatusBadRequest, "Malformed JSON body")
		return
	}

	acc, err := h.store.CreateAccount(r.Context(), req.InitialBalance)
	if err != nil {
		h.failWith(w, e, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/accounts/%d", acc.ID))
	h.respond(w, e, http.StatusCreated, models.NewAccount(acc))
}

func (h *Handler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	e := endpoint{http.MethodGet, "/accounts/{id}"}
	timer := e.timer()
	defer timer.ObserveDuration()

	id, err := pathID(r)
	if err != nil {
		h.fail(w, e, http.StatusBadRequest, "Invalid account id")
		return
	}
	acc, err := h.store.GetAccount(r.Context(), id)
	if err != nil {
		h.failWith(w, e, err)
		return
	}
	h.respond(w, e, http.StatusOK, models.NewAccount(acc))
}

func (h *Handler) GetAccountTransfersHandler(w http.ResponseWriter, r *http.Request) {
	e := endpoint{http.MethodGet, "/accounts/{id}/transfers"}
	timer := e.timer()
	defer timer.ObserveDuration()

	id, err := pathID(r)
	if err != nil {
		h.fail(w, e, http.StatusBadRequest, "Invalid account id")
		return
	}
	transfers, err := h.store.ListAccountTransfers(r.Context(), id)
	if err != nil {
		h.failWith(w, e, err)
		return
	}
	h.respond(w, e, http.StatusOK, models.NewTransfers(transfers))
}

func (h *Handler) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	e := endpoint{http.MethodPost, "/transfers"}
	timer := e.timer()
	defer timer.ObserveDuration()

	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, e, http.StatusBadRequest, "Malformed JSON body")
		return
	}
	if req.FromAccountID == req.ToAccountID {
		h.fail(w, e, http.StatusUnprocessableEntity, "Self-transfer not allowed")
		return
	}

	transfer, err := h.transfers.Transfer(r.Context(), req.FromAccountID, req.ToAccountID, req.Amount)
	if err != nil {
		h.failWith(w, e, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/transfers/%d", transfer.ID))
	h.respond(w, e, http.StatusCreated, models.NewTransfer(transfer))
}

func (h *Handler) GetTransferHandler(w http.ResponseWriter, r *http.Request) {
	e := endpoint{http.MethodGet, "/transfers/{id}"}
	timer := e.timer()
	defer timer.ObserveDuration()

	id, err := pathID(r)
	if err != nil {
		h.fail(w, e, http.StatusBadRequest, "Invalid transfer id")
		return
	}
	transfer, err := h.store.GetTransfer(r.Context(), id)
	if err != nil {
		h.failWith(w, e, err)
		return
	}
	h.respond(w, e, http.StatusOK, models.NewTransfer(transfer))
}

func (h *Handler) CreateExternalTransferHandler(w http.ResponseWriter, r *http.Request) {
	e := endpoint{http.MethodPost, "/external-transfers"}
	timer := e.timer()
	defer timer.ObserveDuration()

	var req models.ExternalTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, e, http.StatusBadRequest, "Malformed JSON body")
		return
	}

	transfer, err := h.transfers.ExternalTransfer(r.Context(), req.AccountID, req.Amount, req.IsOutbound, req.Metadata)
	if err != nil {
		h.failWith(w, e, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/transfers/%d", transfer.ID))
	h.respond(w, e, http.StatusCreated, models.NewTransfer(transfer))
}

func (h *Handler) CreateScheduledPaymentHandler(w http.ResponseWriter, r *http.Request) {
	e := endpoint{http.MethodPost, "/scheduled-payments"}
	timer := e.timer()
	defer timer.ObserveDuration()

	var req models.ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, e, http.StatusBadRequest, "Malformed JSON body")
		return
	}

	p, err := h.scheduler.Schedule(r.Context(), service.ScheduleParams{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Day:           req.Day,
		ForcePayment:  req.ForcePayment,
	}, h.today())
	if err != nil {
		h.failWith(w, e, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/scheduled-payments/%d", p.ID))
	h.respond(w, e, http.StatusCreated, models.NewScheduledPayment(p))
}

func (h *Handler) GetScheduledPaymentHandler(w http.ResponseWriter, r *http.Request) {
	e := endpoint{http.MethodGet, "/scheduled-payments/{id}"}
	timer := e.timer()
	defer timer.ObserveDuration()

	id, err := pathID(r)
	if err != nil {
		h.fail(w, e, http.StatusBadRequest, "Invalid scheduled payment id")
		return
	}
	p, err := h.store.GetScheduledPayment(r.Context(), id)
	if err != nil {
		h.failWith(w, e, err)
		return
	}
	h.respond(w, e, http.StatusOK, models.NewScheduledPayment(p))
}

// RunDuePaymentsHandler triggers a sweep for ?date=YYYY-MM-DD, or for today
// when date is omitted. Per-payment failures are part of a 200 response.
func (h *Handler) RunDuePaymentsHandler(w http.ResponseWriter, r *http.Request) {
	e := endpoint{http.MethodPost, "/scheduled-payments/run"}
	timer := e.timer()
	defer timer.ObserveDuration()

	day := h.today()
	if q := r.URL.Query().Get("date"); q != "" {
		d, err := calendar.Parse(q)
		if err != nil {
			h.fail(w, e, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = d
	}

	report, err := h.scheduler.RunDuePayments(r.Context(), day)
	if err != nil {
		h.failWith(w, e, err)
		return
	}
	h.respond(w, e, http.StatusOK, models.NewSweepReport(report))
}
