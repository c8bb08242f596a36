package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/finbridge/payout-bridge/internal/bridge/application"
	"github.com/finbridge/payout-bridge/internal/bridge/domain"
)

// PayoutCopier is the slice of the copy service the trigger endpoint needs.
type PayoutCopier interface {
	CopyAllOrdersForPayout(ctx context.Context, ref application.PayoutRef) (domain.PayoutSummary, error)
}

// RunLister exposes the copy-run journal; nil disables the /runs route.
type RunLister interface {
	Runs(ctx context.Context, limit int) ([]domain.RunRecord, error)
}

type Handler struct {
	log    *slog.Logger
	copier PayoutCopier
	runs   RunLister
	tracer trace.Tracer
}

func NewHandler(log *slog.Logger, copier PayoutCopier, runs RunLister) *Handler {
	return &Handler{
		log:    log,
		copier: copier,
		runs:   runs,
		tracer: otel.Tracer("payout-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/payouts/copy", h.copyPayout)
	r.Get("/healthz", h.healthz)
	if h.runs != nil {
		r.Get("/runs", h.listRuns)
	}
	return r
}

func (h *Handler) copyPayout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CopyPayout")
	defer span.End()

	var ref application.PayoutRef
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	summary, err := h.copier.CopyAllOrdersForPayout(ctx, ref)
	if err != nil {
		h.log.Error("payout copy failed", "payout_id", ref.ID, "payout_date", ref.Date, "err", err)
		status := http.StatusBadGateway
		if errors.Is(err, application.ErrPayoutRef) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.Runs(r.Context(), 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(runs)
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
