package lifecycle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"lightning-gateway/internal/domain/entities"
	domainerrors "lightning-gateway/internal/domain/errors"
	"lightning-gateway/internal/domain/repositories"
	"lightning-gateway/internal/eventbus"
	"lightning-gateway/internal/metrics"
	"lightning-gateway/internal/provider"
)

// terminalNotifier is the subset of the Callback Notifier the engine
// needs; kept as an interface so tests don't need a live HTTP client.
type terminalNotifier interface {
	NotifyTerminal(req *entities.PaymentRequest, reason string)
}

// tracker is the subset of the Monitoring Worker the engine needs: a
// payment that just reached PENDING is handed off to active polling
// immediately, rather than waiting for the next crash-recovery sweep.
type tracker interface {
	Track(ctx context.Context, req *entities.PaymentRequest)
}

const metadataMaxBytes = 8 * 1024

// transitions encodes the allowed (old, new) status pairs. CREATED and
// PENDING are the only non-terminal states; every terminal absorbs.
// CREATED -> PAID is included alongside CREATED -> PENDING because a
// settlement webhook can race the invoice-assignment write; the
// lock-reload in ApplyHint handles it like any other transition.
var transitions = map[entities.Status][]entities.Status{
	entities.StatusCreated: {
		entities.StatusPending, entities.StatusPaid, entities.StatusFailed, entities.StatusCanceled,
	},
	entities.StatusPending: {
		entities.StatusPaid, entities.StatusExpired, entities.StatusTimedOut,
		entities.StatusFailed, entities.StatusCanceled,
	},
}

func allowed(from, to entities.Status) bool {
	if from.IsTerminal() {
		return false
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Engine is the Lifecycle Engine: the single authority for
// PaymentRequest state transitions. Every mutation runs inside a unit
// of work, under a row lock on the payment (or the client, for event
// seq allocation), and appends an event before publishing it.
type Engine struct {
	uow           repositories.UnitOfWork
	payments      repositories.PaymentRequestRepository
	events        repositories.PaymentEventRepository
	idempotency   repositories.IdempotencyRepository
	provider      *provider.Client
	bus           *eventbus.Bus
	notifier      terminalNotifier
	defaultWindow time.Duration
	storeID       string
	logger        *zap.Logger

	tracker  tracker
	trackCtx context.Context
}

// SetTracker wires the Monitoring Worker's active poller into the
// engine. It is set after construction, not passed into NewEngine,
// because the Monitoring Worker itself depends on the engine as its
// HintSubmitter — main.go builds both, then closes the loop here.
// ctx should be the process's long-lived lifetime context, not a
// request-scoped one: Track spawns a goroutine that must outlive the
// HTTP request that triggered it.
func (e *Engine) SetTracker(ctx context.Context, t tracker) {
	e.trackCtx = ctx
	e.tracker = t
}

func NewEngine(
	uow repositories.UnitOfWork,
	payments repositories.PaymentRequestRepository,
	events repositories.PaymentEventRepository,
	idempotency repositories.IdempotencyRepository,
	providerClient *provider.Client,
	bus *eventbus.Bus,
	notifier terminalNotifier,
	defaultWindow time.Duration,
	storeID string,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		uow:           uow,
		payments:      payments,
		events:        events,
		idempotency:   idempotency,
		provider:      providerClient,
		bus:           bus,
		notifier:      notifier,
		defaultWindow: defaultWindow,
		storeID:       storeID,
		logger:        logger,
	}
}

// Create validates, resolves idempotency, records a CREATED row, then
// asks the provider for an invoice. On provider success it transitions
// to PENDING with the invoice attached; on provider failure it
// transitions to FAILED and returns a 502.
func (e *Engine) Create(ctx context.Context, clientID uuid.UUID, in entities.CreatePaymentInput) (*entities.PaymentRequest, error) {
	if err := validateCreateInput(in); err != nil {
		return nil, err
	}

	fp := fingerprint(clientID, in)
	if in.IdempotencyKey != "" {
		existing, err := e.idempotency.Get(ctx, clientID, in.IdempotencyKey)
		if err == nil {
			if existing.Fingerprint != fp {
				return nil, domainerrors.Conflict("idempotency key already used with different parameters")
			}
			return e.payments.GetByID(ctx, existing.PaymentID)
		}
		if !errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.Internal(err)
		}
	}

	req := &entities.PaymentRequest{
		ID:           uuid.Must(uuid.NewV7()),
		ClientID:     clientID,
		Amount:       in.Amount,
		Currency:     in.Currency,
		Status:       entities.StatusCreated,
		ExternalCode: in.ExternalCode,
		Description:  null.NewString(in.Description, in.Description != ""),
		CallbackURL:  null.NewString(in.CallbackURL, in.CallbackURL != ""),
		RedirectURL:  null.NewString(in.RedirectURL, in.RedirectURL != ""),
		Metadata:     null.NewString(in.Metadata, in.Metadata != ""),
		MonitorUntil: nowUTC().Add(e.defaultWindow),
	}
	if in.IdempotencyKey != "" {
		req.IdempotencyKey = null.StringFrom(in.IdempotencyKey)
	}

	ev := &entities.PaymentEvent{
		ClientID: clientID, PaymentID: req.ID,
		Type: entities.EventCreated, Status: entities.StatusCreated,
	}
	err := e.uow.Do(ctx, func(ctx context.Context) error {
		if err := e.payments.Create(ctx, req); err != nil {
			return err
		}
		if in.IdempotencyKey != "" {
			if err := e.idempotency.Insert(ctx, repositories.IdempotencyRecord{
				ClientID: clientID, Key: in.IdempotencyKey, Fingerprint: fp, PaymentID: req.ID,
			}); err != nil {
				return err
			}
		}
		return e.events.Create(ctx, ev)
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("idempotency key already used with different parameters")
		}
		return nil, domainerrors.Internal(err)
	}
	e.bus.Publish(eventbus.Event{ClientID: clientID, Seq: ev.Seq, Type: entities.EventCreated, PaymentID: req.ID, Status: entities.StatusCreated})

	inv, err := e.provider.CreateInvoice(ctx, provider.CreateInvoiceInput{
		Amount: req.Amount, Currency: req.Currency, Description: in.Description, StoreID: e.storeID,
	})
	if err != nil {
		e.logger.Warn("provider invoice creation failed", zap.String("payment_id", req.ID.String()), zap.Error(err))
		if failErr := e.finalize(ctx, clientID, req.ID, entities.StatusFailed, "PROVIDER_ERROR"); failErr != nil {
			e.logger.Error("failed to record provider failure", zap.Error(failErr))
		} else {
			req.Status = entities.StatusFailed
			metrics.PaymentsTerminal.WithLabelValues(string(entities.StatusFailed)).Inc()
			e.notifier.NotifyTerminal(req, "PROVIDER_ERROR")
		}
		return nil, domainerrors.ProviderError("provider invoice creation failed", err)
	}

	if err := e.attachInvoice(ctx, clientID, req.ID, inv); err != nil {
		return nil, domainerrors.Internal(err)
	}

	final, err := e.payments.GetByID(ctx, req.ID)
	if err != nil {
		return nil, domainerrors.Internal(err)
	}
	if e.tracker != nil && final.Status == entities.StatusPending {
		e.tracker.Track(e.trackCtx, final)
	}
	return final, nil
}

// attachInvoice records the provider invoice and moves the payment to
// PENDING. Like ApplyHint, it reloads under lock and routes through
// allowed() before writing: a concurrent Cancel may already have
// moved the row to a terminal status while the provider call was in
// flight, and that terminal status must never be stomped back to
// PENDING.
func (e *Engine) attachInvoice(ctx context.Context, clientID, paymentID uuid.UUID, inv *provider.Invoice) error {
	return e.uow.Do(ctx, func(ctx context.Context) error {
		ctx = e.uow.WithLock(ctx)
		req, err := e.payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if !allowed(req.Status, entities.StatusPending) {
			e.logger.Info("invoice attach ignored: disallowed transition",
				zap.String("payment_id", paymentID.String()),
				zap.String("from", string(req.Status)))
			return nil
		}
		if err := e.payments.AssignInvoice(ctx, paymentID, "lightning", inv.ProviderInvoiceID, inv.CheckoutLink, inv.Bolt11, inv.ExpiresAt); err != nil {
			return err
		}
		ev := &entities.PaymentEvent{
			ClientID: clientID, PaymentID: paymentID,
			Type: entities.EventInvoiceCreated, Status: entities.StatusPending,
		}
		if err := e.events.Create(ctx, ev); err != nil {
			return err
		}
		e.bus.Publish(eventbus.Event{ClientID: clientID, Seq: ev.Seq, Type: entities.EventInvoiceCreated, PaymentID: paymentID, Status: entities.StatusPending})
		return nil
	})
}

func (e *Engine) finalize(ctx context.Context, clientID, paymentID uuid.UUID, status entities.Status, reason string) error {
	return e.uow.Do(ctx, func(ctx context.Context) error {
		ctx = e.uow.WithLock(ctx)
		ev := &entities.PaymentEvent{
			ClientID: clientID, PaymentID: paymentID,
			Type: eventTypeForStatus(status), Status: status, Reason: reason,
		}
		if err := e.events.Create(ctx, ev); err != nil {
			return err
		}
		if err := e.payments.UpdateStatus(ctx, paymentID, status, reason); err != nil {
			return err
		}
		e.bus.Publish(eventbus.Event{ClientID: clientID, Seq: ev.Seq, Type: eventTypeForStatus(status), PaymentID: paymentID, Status: status, Reason: reason})
		return nil
	})
}

// Get is a read-through fetch; returns ErrNotFound if the payment is
// absent or not owned by clientID.
func (e *Engine) Get(ctx context.Context, clientID, id uuid.UUID) (*entities.PaymentRequest, error) {
	req, err := e.payments.GetByIDForClient(ctx, id, clientID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("payment not found")
		}
		return nil, domainerrors.Internal(err)
	}
	return req, nil
}

// ApplyHint is the internal entry point used by the Webhook Ingress
// and Monitoring Worker. It reloads the payment under lock, validates
// the implied transition, and is a silent no-op if the transition is
// disallowed (the payment is already terminal, or the hint doesn't
// match the current state) — the first accepted terminal always wins.
func (e *Engine) ApplyHint(ctx context.Context, paymentID uuid.UUID, hint entities.Hint) (entities.Status, error) {
	var result entities.Status
	var notify *entities.PaymentRequest
	var notifyReason string

	err := e.uow.Do(ctx, func(ctx context.Context) error {
		ctx = e.uow.WithLock(ctx)
		req, err := e.payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		result = req.Status

		target, ok := targetStatus(hint.Kind)
		if !ok {
			return nil
		}
		if !allowed(req.Status, target) {
			e.logger.Info("hint ignored: disallowed transition",
				zap.String("payment_id", paymentID.String()),
				zap.String("from", string(req.Status)), zap.String("to", string(target)))
			return nil
		}

		ev := &entities.PaymentEvent{
			ClientID: req.ClientID, PaymentID: paymentID,
			Type: eventTypeForStatus(target), Status: target, Reason: hint.Reason,
		}
		if err := e.events.Create(ctx, ev); err != nil {
			return err
		}
		if err := e.payments.UpdateStatus(ctx, paymentID, target, hint.Reason); err != nil {
			return err
		}
		e.bus.Publish(eventbus.Event{ClientID: req.ClientID, Seq: ev.Seq, Type: eventTypeForStatus(target), PaymentID: paymentID, Status: target, Reason: hint.Reason})
		result = target
		req.Status = target
		notify = req
		notifyReason = hint.Reason
		return nil
	})
	if err != nil {
		return "", domainerrors.Internal(err)
	}
	if notify != nil {
		metrics.PaymentsTerminal.WithLabelValues(string(notify.Status)).Inc()
		e.notifier.NotifyTerminal(notify, notifyReason)
	}
	return result, nil
}

// Cancel transitions a payment to CANCELED; permitted only while the
// payment is still non-terminal.
func (e *Engine) Cancel(ctx context.Context, clientID, paymentID uuid.UUID) error {
	var notify *entities.PaymentRequest

	err := e.uow.Do(ctx, func(ctx context.Context) error {
		ctx = e.uow.WithLock(ctx)
		req, err := e.payments.GetByIDForClient(ctx, paymentID, clientID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				return domainerrors.NotFound("payment not found")
			}
			return err
		}
		if req.Status.IsTerminal() {
			return domainerrors.Conflict("payment already finalized")
		}
		ev := &entities.PaymentEvent{
			ClientID: clientID, PaymentID: paymentID,
			Type: entities.EventStatusChanged, Status: entities.StatusCanceled, Reason: "client_canceled",
		}
		if err := e.events.Create(ctx, ev); err != nil {
			return err
		}
		if err := e.payments.UpdateStatus(ctx, paymentID, entities.StatusCanceled, "client_canceled"); err != nil {
			return err
		}
		e.bus.Publish(eventbus.Event{ClientID: clientID, Seq: ev.Seq, Type: entities.EventStatusChanged, PaymentID: paymentID, Status: entities.StatusCanceled, Reason: "client_canceled"})
		req.Status = entities.StatusCanceled
		notify = req
		return nil
	})
	if err != nil {
		return err
	}
	if notify != nil {
		metrics.PaymentsTerminal.WithLabelValues(string(entities.StatusCanceled)).Inc()
		e.notifier.NotifyTerminal(notify, "client_canceled")
	}
	return nil
}

func targetStatus(kind entities.HintKind) (entities.Status, bool) {
	switch kind {
	case entities.HintPaid:
		return entities.StatusPaid, true
	case entities.HintExpired:
		return entities.StatusExpired, true
	case entities.HintInvalid:
		return entities.StatusFailed, true
	case entities.HintTimedOut:
		return entities.StatusTimedOut, true
	default:
		return "", false
	}
}

func eventTypeForStatus(status entities.Status) entities.EventType {
	switch status {
	case entities.StatusPaid:
		return entities.EventPaid
	case entities.StatusExpired:
		return entities.EventExpired
	case entities.StatusTimedOut:
		return entities.EventTimedOut
	case entities.StatusFailed:
		return entities.EventFailed
	default:
		return entities.EventStatusChanged
	}
}

func validateCreateInput(in entities.CreatePaymentInput) error {
	if in.Amount.Sign() <= 0 {
		return domainerrors.BadRequest("amount must be positive")
	}
	if len(in.Currency) < 3 || len(in.Currency) > 10 {
		return domainerrors.BadRequest("currency must be 3-10 characters")
	}
	if len(in.ExternalCode) < 1 || len(in.ExternalCode) > 64 {
		return domainerrors.BadRequest("external_code must be 1-64 characters")
	}
	if in.CallbackURL != "" {
		if _, err := url.ParseRequestURI(in.CallbackURL); err != nil {
			return domainerrors.BadRequest("callback_url is not a well-formed URL")
		}
	}
	if in.RedirectURL != "" {
		if _, err := url.ParseRequestURI(in.RedirectURL); err != nil {
			return domainerrors.BadRequest("redirect_url is not a well-formed URL")
		}
	}
	if len(in.Metadata) > metadataMaxBytes {
		return domainerrors.BadRequest("metadata exceeds 8KiB")
	}
	return nil
}

// fingerprint is the canonical hash of the request parameters that
// must match on idempotency-key replay; a mismatch means the same key
// was reused for a different payment.
func fingerprint(clientID uuid.UUID, in entities.CreatePaymentInput) string {
	h := sha256.New()
	h.Write([]byte(clientID.String()))
	h.Write([]byte(in.Amount.String()))
	h.Write([]byte(in.Currency))
	h.Write([]byte(in.ExternalCode))
	h.Write([]byte(in.Description))
	h.Write([]byte(in.CallbackURL))
	h.Write([]byte(in.RedirectURL))
	h.Write([]byte(in.Metadata))
	return hex.EncodeToString(h.Sum(nil))
}

var nowUTC = func() time.Time { return time.Now().UTC() }
