package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"lightning-gateway/internal/domain/entities"
	"lightning-gateway/internal/metrics"
	"lightning-gateway/internal/provider"
)

// HintSubmitter is the subset of the lifecycle engine the monitoring
// worker drives: a reported hint is advisory, the engine alone decides
// whether it changes anything.
type HintSubmitter interface {
	ApplyHint(ctx context.Context, paymentID uuid.UUID, hint entities.Hint) (entities.Status, error)
}

// OpenPaymentLister is the subset of the payment-request repository
// the startup sweep needs.
type OpenPaymentLister interface {
	GetOpen(ctx context.Context, limit int) ([]*entities.PaymentRequest, error)
}

// InvoiceChecker is the subset of the provider client a per-payment
// poller needs.
type InvoiceChecker interface {
	GetInvoice(ctx context.Context, providerInvoiceID string) (*provider.Invoice, error)
}

const sweepPageSize = 200

// MonitoringWorker is the Monitoring Worker: for every payment that
// enters PENDING it polls the provider at a fixed interval until a
// terminal is reached, the monitoring window elapses, or the provider
// is unreachable three polls running. It is advisory only — every
// decision still passes through the lifecycle engine's ApplyHint,
// which is free to ignore a hint that no longer applies.
type MonitoringWorker struct {
	payments        OpenPaymentLister
	provider        InvoiceChecker
	engine          HintSubmitter
	pollInterval    time.Duration
	sweepInterval   time.Duration
	maxProviderErrs int

	mu      sync.Mutex
	tracked map[uuid.UUID]context.CancelFunc
}

func NewMonitoringWorker(payments OpenPaymentLister, providerClient InvoiceChecker, engine HintSubmitter, pollInterval, sweepInterval time.Duration, maxProviderErrs int) *MonitoringWorker {
	return &MonitoringWorker{
		payments:        payments,
		provider:        providerClient,
		engine:          engine,
		pollInterval:    pollInterval,
		sweepInterval:   sweepInterval,
		maxProviderErrs: maxProviderErrs,
		tracked:         make(map[uuid.UUID]context.CancelFunc),
	}
}

// Track starts polling a single payment that just entered PENDING.
// Safe to call more than once for the same payment id: a second call
// is a no-op while the first poller is still running.
func (w *MonitoringWorker) Track(ctx context.Context, req *entities.PaymentRequest) {
	if !req.HasInvoice() {
		return
	}
	w.mu.Lock()
	if _, already := w.tracked[req.ID]; already {
		w.mu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	w.tracked[req.ID] = cancel
	w.mu.Unlock()

	go w.poll(pollCtx, req)
}

// Start runs the crash-recovery sweep on a fixed interval: every open
// PENDING payment row is (re)tracked, whether or not this process was
// the one that created it, so a restart re-discovers in-flight
// payments the previous process was polling. Open CREATED rows are
// skipped and are not tracked.
func (w *MonitoringWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *MonitoringWorker) sweep(ctx context.Context) {
	open, err := w.payments.GetOpen(ctx, sweepPageSize)
	if err != nil {
		log.Printf("monitoring worker: sweep failed: %v", err)
		return
	}
	for _, req := range open {
		if req.Status == entities.StatusCreated {
			continue // still being assigned an invoice by Create; not our concern yet
		}
		w.Track(ctx, req)
	}
}

func (w *MonitoringWorker) poll(ctx context.Context, req *entities.PaymentRequest) {
	defer w.untrack(req.ID)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	consecutiveErrs := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if time.Now().UTC().After(req.MonitorUntil) {
			metrics.MonitorPolls.WithLabelValues("timed_out").Inc()
			w.submit(ctx, req.ID, entities.Hint{Kind: entities.HintTimedOut, Reason: "MONITOR_WINDOW_EXCEEDED"})
			return
		}

		inv, err := w.provider.GetInvoice(ctx, req.ProviderInvoiceID.String)
		if err != nil {
			consecutiveErrs++
			metrics.MonitorPolls.WithLabelValues("error").Inc()
			if consecutiveErrs >= w.maxProviderErrs {
				w.submit(ctx, req.ID, entities.Hint{Kind: entities.HintInvalid, Reason: "PROVIDER_UNREACHABLE"})
				return
			}
			continue
		}
		consecutiveErrs = 0

		switch inv.Status {
		case provider.InvoiceStatusSettled:
			metrics.MonitorPolls.WithLabelValues("settled").Inc()
			w.submit(ctx, req.ID, entities.Hint{Kind: entities.HintPaid, Reason: "provider_poll"})
			return
		case provider.InvoiceStatusExpired:
			metrics.MonitorPolls.WithLabelValues("expired").Inc()
			w.submit(ctx, req.ID, entities.Hint{Kind: entities.HintExpired, Reason: "provider_poll"})
			return
		case provider.InvoiceStatusInvalid:
			metrics.MonitorPolls.WithLabelValues("invalid").Inc()
			w.submit(ctx, req.ID, entities.Hint{Kind: entities.HintInvalid, Reason: "provider_poll"})
			return
		default:
			metrics.MonitorPolls.WithLabelValues("pending").Inc()
		}
	}
}

// submit reports a hint; ApplyHint itself decides whether the payment
// is still in a state where the hint matters (it may have already
// gone terminal through a webhook), making a duplicate or late
// submission safe.
func (w *MonitoringWorker) submit(ctx context.Context, paymentID uuid.UUID, hint entities.Hint) {
	if _, err := w.engine.ApplyHint(ctx, paymentID, hint); err != nil {
		log.Printf("monitoring worker: apply hint failed for %s: %v", paymentID, err)
	}
}

func (w *MonitoringWorker) untrack(id uuid.UUID) {
	w.mu.Lock()
	delete(w.tracked, id)
	w.mu.Unlock()
}
