// Package checkout drives one shopper from shipping details to a recorded
// order: it locks the total, reserves exactly that amount with the payment
// gateway, confirms it and writes a single order.
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/refuel-athletics/gelstore/internal/domain/cart"
	"github.com/refuel-athletics/gelstore/internal/domain/order"
	"github.com/refuel-athletics/gelstore/internal/domain/session"
)

// Cart is the read side of the cart the orchestrator needs, plus Clear for
// after a successful payment.
type Cart interface {
	Snapshot() cart.Snapshot
	Clear()
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPricing overrides DefaultPricing.
func WithPricing(p Pricing) Option {
	return func(o *Orchestrator) { o.pricing = p }
}

// WithNotifier sets the confirmation notifier. Without one no confirmation
// is sent.
func WithNotifier(n order.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(lg *zap.Logger) Option {
	return func(o *Orchestrator) { o.lg = lg }
}

// WithTracerProvider sets the tracer provider for gateway spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) { o.tracer = tp.Tracer("gelstore/checkout") }
}

// WithMeterProvider sets the meter provider for checkout counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *Orchestrator) { o.meter = mp.Meter("gelstore/checkout") }
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// State is a read-only view of a checkout session.
type State struct {
	Phase     Phase
	Shipping  ShippingInfo
	Quote     *Quote
	Handle    string
	Card      string
	Brand     CardBrand
	Reference string
	// Failure is the last recoverable error; it is cleared by the next
	// successful transition.
	Failure error
	// NeedsReconcile is set after an ambiguous confirmation. The next
	// Confirm asks the gateway for the outcome before charging again.
	NeedsReconcile bool
}

type operation int

const (
	opNone operation = iota
	opAuthorize
	opConfirm
)

// Orchestrator is the checkout state machine for one session. At most one
// gateway operation runs at a time; concurrent shipping submissions share a
// single authorization call, any other overlapping request gets ErrBusy.
//
// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	cart     Cart
	gateway  Gateway
	sink     order.Sink
	notifier order.Notifier
	sess     session.Session
	pricing  Pricing
	lg       *zap.Logger
	tracer   trace.Tracer
	meter    metric.Meter
	now      func() time.Time

	authorizations metric.Int64Counter
	confirmations  metric.Int64Counter

	flight   singleflight.Group
	notifyWG sync.WaitGroup

	mu        sync.Mutex
	epoch     uint64
	phase     Phase
	op        operation
	shipping  ShippingInfo
	quote     *Quote
	auth      *Authorization
	payment   PaymentDetails
	failure   error
	reconcile bool
	// paid holds a gateway success whose order is not recorded yet.
	paid      *Confirmation
	order     *order.Order
	reference string
}

// New creates an Orchestrator for sess in the Shipping phase.
func New(c Cart, gw Gateway, sink order.Sink, sess session.Session, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cart:    c,
		gateway: gw,
		sink:    sink,
		sess:    sess,
		pricing: DefaultPricing(),
		now:     time.Now,
		phase:   PhaseShipping,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.lg == nil {
		o.lg = zap.NewNop()
	}
	if o.tracer == nil {
		o.tracer = tracenoop.NewTracerProvider().Tracer("gelstore/checkout")
	}
	if o.meter == nil {
		o.meter = metricnoop.NewMeterProvider().Meter("gelstore/checkout")
	}
	o.lg = o.lg.With(zap.String("session_id", sess.ID))

	var err error
	if o.authorizations, err = o.meter.Int64Counter("checkout.authorizations",
		metric.WithDescription("Gateway authorizations requested"),
	); err != nil {
		o.lg.Warn("Create authorizations counter", zap.Error(err))
	}
	if o.confirmations, err = o.meter.Int64Counter("checkout.confirmations",
		metric.WithDescription("Confirmation attempts by outcome"),
	); err != nil {
		o.lg.Warn("Create confirmations counter", zap.Error(err))
	}
	return o
}

// State returns the current session state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := State{
		Phase:          o.phase,
		Shipping:       o.shipping,
		Card:           o.payment.Masked(),
		Brand:          o.payment.Brand(),
		Reference:      o.reference,
		Failure:        o.failure,
		NeedsReconcile: o.reconcile,
	}
	if o.quote != nil {
		q := *o.quote
		st.Quote = &q
	}
	if o.auth != nil {
		st.Handle = o.auth.Handle
	}
	return st
}

// Preview prices the current cart for tier without locking anything.
func (o *Orchestrator) Preview(tier Tier) Quote {
	return o.pricing.Quote(o.cart.Snapshot(), tier)
}

// SubmitShipping validates info and moves Shipping → Authorizing. On entry
// the total is locked and an authorization for exactly that amount is
// requested, unless one for the same amount is already cached.
func (o *Orchestrator) SubmitShipping(ctx context.Context, info ShippingInfo) (Quote, error) {
	info = info.Normalize()
	if err := info.Validate(); err != nil {
		return Quote{}, err
	}

	o.mu.Lock()
	if o.op != opNone && o.op != opAuthorize {
		o.mu.Unlock()
		return Quote{}, ErrBusy
	}
	o.mu.Unlock()

	v, err, shared := o.flight.Do("authorize", func() (any, error) {
		return o.authorize(ctx, info)
	})
	if shared {
		o.lg.Debug("Joined in-flight authorization")
	}
	if err != nil {
		return Quote{}, err
	}
	return v.(Quote), nil
}

func (o *Orchestrator) authorize(ctx context.Context, info ShippingInfo) (Quote, error) {
	o.mu.Lock()
	if o.op != opNone {
		o.mu.Unlock()
		return Quote{}, ErrBusy
	}
	if o.phase != PhaseShipping && o.phase != PhaseAuthorizing {
		phase := o.phase
		o.mu.Unlock()
		return Quote{}, errors.Wrapf(ErrInvalidTransition, "submit shipping in %s", phase)
	}

	snap := o.cart.Snapshot()
	if snap.Empty() {
		o.mu.Unlock()
		return Quote{}, ErrEmptyCart
	}
	q := o.pricing.Quote(snap, info.Tier)
	if err := o.pricing.checkCharge(q); err != nil {
		o.mu.Unlock()
		return Quote{}, err
	}

	o.shipping = info
	if o.auth != nil && o.auth.AmountMinor == q.AmountMinor && o.quote != nil {
		// Re-entry with an unchanged total keeps the reservation.
		if !o.phase.CanTransitionTo(PhaseAuthorizing) {
			o.mu.Unlock()
			return Quote{}, ErrInvalidTransition
		}
		// The handle covers the amount, not the items: lock the current cart.
		o.quote = &q
		o.phase = PhaseAuthorizing
		o.failure = nil
		handle := o.auth.Handle
		o.mu.Unlock()
		o.lg.Debug("Reusing cached authorization", zap.String("handle", handle))
		return q, nil
	}
	if o.auth != nil {
		o.lg.Info("Total changed, replacing authorization",
			zap.Int64("old_amount", o.auth.AmountMinor),
			zap.Int64("new_amount", q.AmountMinor),
		)
		o.auth = nil
	}
	o.op = opAuthorize
	epoch := o.epoch
	o.mu.Unlock()

	auth, err := o.createAuthorization(ctx, q, info)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.epoch != epoch {
		return Quote{}, errors.Wrap(ErrInvalidTransition, "checkout closed")
	}
	o.op = opNone
	if err != nil {
		o.failure = err
		return Quote{}, err
	}
	o.auth = &auth
	o.quote = &q
	o.phase = PhaseAuthorizing
	o.failure = nil
	return q, nil
}

func (o *Orchestrator) createAuthorization(ctx context.Context, q Quote, info ShippingInfo) (Authorization, error) {
	ctx, span := o.tracer.Start(ctx, "checkout.CreateAuthorization",
		trace.WithAttributes(
			attribute.Int64("checkout.amount_minor", q.AmountMinor),
			attribute.String("checkout.currency", q.Currency),
		),
	)
	defer span.End()

	metadata := map[string]string{
		"customer_name":  info.FullName(),
		"customer_email": info.Email,
		"ship_to":        info.City + ", " + info.State,
		"session_id":     o.sess.ID,
	}
	auth, err := o.gateway.CreateAuthorization(ctx, q.AmountMinor, q.Currency, metadata)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create authorization")
		o.lg.Warn("Authorization failed", zap.Int64("amount_minor", q.AmountMinor), zap.Error(err))
		return Authorization{}, errors.Wrap(err, "create authorization")
	}
	if o.authorizations != nil {
		o.authorizations.Add(ctx, 1)
	}
	o.lg.Info("Authorization created",
		zap.String("handle", auth.Handle),
		zap.Int64("amount_minor", q.AmountMinor),
	)
	return auth, nil
}

// SubmitPayment validates payment details locally and moves
// Authorizing → Reviewing. No funds are touched.
func (o *Orchestrator) SubmitPayment(details PaymentDetails) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.op != opNone {
		return ErrBusy
	}
	if !o.phase.CanTransitionTo(PhaseReviewing) {
		return errors.Wrapf(ErrInvalidTransition, "submit payment in %s", o.phase)
	}
	if err := details.Validate(o.now()); err != nil {
		o.failure = err
		return err
	}
	o.payment = details
	o.phase = PhaseReviewing
	o.failure = nil
	return nil
}

// Back returns to the previous step. The cached authorization and the
// shipping draft are kept.
func (o *Orchestrator) Back() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.op != opNone {
		return ErrBusy
	}
	switch o.phase {
	case PhaseAuthorizing:
		o.phase = PhaseShipping
	case PhaseReviewing:
		o.phase = PhaseAuthorizing
	default:
		return errors.Wrapf(ErrInvalidTransition, "back from %s", o.phase)
	}
	return nil
}

// Confirm charges the cached authorization and records the order. A
// confirmed session returns its existing order without writing again.
//
// A decline moves the session back to Authorizing. An ambiguous outcome
// keeps it in Reviewing and the next Confirm reconciles with the gateway
// first. If the payment succeeded but the order could not be recorded,
// the next Confirm only retries the recording.
func (o *Orchestrator) Confirm(ctx context.Context) (*order.Order, error) {
	o.mu.Lock()
	if o.phase == PhaseConfirmed {
		existing := o.order
		o.mu.Unlock()
		return existing, nil
	}
	if o.op != opNone {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	if !o.phase.CanTransitionTo(PhaseConfirmed) || o.quote == nil {
		phase := o.phase
		o.mu.Unlock()
		return nil, errors.Wrapf(ErrInvalidTransition, "confirm in %s", phase)
	}
	o.op = opConfirm
	epoch := o.epoch
	q := *o.quote
	info := o.shipping
	details := o.payment
	paid := o.paid
	reconcile := o.reconcile
	var auth *Authorization
	if o.auth != nil {
		a := *o.auth
		auth = &a
	}
	o.mu.Unlock()

	ctx, span := o.tracer.Start(ctx, "checkout.Confirm",
		trace.WithAttributes(attribute.Int64("checkout.amount_minor", q.AmountMinor)),
	)
	defer span.End()

	// Updates are dropped once the session was closed mid-flight.
	update := func(fn func()) {
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.epoch == epoch {
			fn()
		}
	}
	release := func(fn func()) {
		update(func() {
			o.op = opNone
			fn()
		})
	}

	if paid == nil {
		if auth == nil {
			a, err := o.createAuthorization(ctx, q, info)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "create authorization")
				release(func() { o.failure = err })
				return nil, err
			}
			auth = &a
			update(func() { o.auth = &a })
		}

		conf, err := o.charge(ctx, details, auth, reconcile)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "confirm")
			o.countConfirmation(ctx, outcome(err))
			release(func() { o.applyFailure(err) })
			return nil, err
		}
		paid = &conf
		update(func() {
			o.paid = paid
			o.reconcile = false
		})
	}

	ord := o.newOrder(q, info, *paid)
	ref, err := o.sink.CreateOrder(ctx, ord)
	if err != nil {
		o.lg.Error("Payment succeeded but order was not recorded",
			zap.String("payment_ref", paid.PaymentRef),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "record order")
		release(func() { o.failure = err })
		return nil, errors.Wrap(err, "record order")
	}
	ord.Reference = ref
	o.countConfirmation(ctx, "succeeded")
	span.SetAttributes(attribute.String("order.reference", ref))

	o.cart.Clear()
	release(func() {
		o.phase = PhaseConfirmed
		o.order = ord
		o.reference = ref
		o.paid = nil
		o.failure = nil
	})
	o.lg.Info("Order confirmed",
		zap.String("reference", ref),
		zap.String("payment_ref", paid.PaymentRef),
		zap.Int64("amount_minor", q.AmountMinor),
	)

	o.dispatchNotification(ctx, ref, info.Email, ord)
	return ord, nil
}

// charge produces a gateway success or an error. A previous ambiguous
// attempt is reconciled before charging again.
func (o *Orchestrator) charge(
	ctx context.Context,
	details PaymentDetails,
	auth *Authorization,
	reconcile bool,
) (Confirmation, error) {
	if reconcile {
		conf, err := o.gateway.Lookup(ctx, auth.Handle)
		if err != nil {
			return Confirmation{}, errors.Wrapf(ErrGatewayAmbiguous, "reconcile %s: %v", auth.Handle, err)
		}
		switch conf.Status {
		case ConfirmationSucceeded:
			o.lg.Info("Reconciliation found a completed payment", zap.String("handle", auth.Handle))
			return conf, nil
		case ConfirmationPending:
			return Confirmation{}, errors.Wrap(ErrGatewayAmbiguous, "payment still processing")
		}
		// The earlier attempt did not go through; charge again.
	}

	conf, err := o.gateway.Confirm(ctx, auth.Handle, details)
	if err != nil {
		var declined *DeclinedError
		if errors.As(err, &declined) || errors.Is(err, ErrValidation) || errors.Is(err, ErrGatewayAmbiguous) {
			return Confirmation{}, err
		}
		// Unknown failures are treated as ambiguous: the charge may have
		// gone through.
		return Confirmation{}, errors.Wrapf(ErrGatewayAmbiguous, "confirm %s: %v", auth.Handle, err)
	}
	switch conf.Status {
	case ConfirmationSucceeded:
		return conf, nil
	case ConfirmationFailed:
		return Confirmation{}, &DeclinedError{
			Code:           conf.DeclineCode,
			Message:        conf.Message,
			HandleReusable: conf.HandleReusable,
		}
	default:
		return Confirmation{}, errors.Wrap(ErrGatewayAmbiguous, "payment still processing")
	}
}

// applyFailure updates state after a failed charge. Called with o.mu held.
func (o *Orchestrator) applyFailure(err error) {
	o.failure = err
	var declined *DeclinedError
	switch {
	case errors.As(err, &declined):
		o.phase = PhaseAuthorizing
		o.reconcile = false
		if !declined.HandleReusable {
			o.auth = nil
		}
		o.lg.Info("Payment declined",
			zap.String("code", declined.Code),
			zap.Bool("handle_reusable", declined.HandleReusable),
		)
	case errors.Is(err, ErrValidation):
		o.phase = PhaseAuthorizing
	case errors.Is(err, ErrGatewayAmbiguous):
		o.reconcile = true
		o.lg.Warn("Payment outcome unknown, reconciliation required", zap.Error(err))
	default:
		o.lg.Warn("Confirmation failed", zap.Error(err))
	}
}

func (o *Orchestrator) newOrder(q Quote, info ShippingInfo, paid Confirmation) *order.Order {
	return &order.Order{
		Reference:    order.NewReference(),
		UserID:       o.sess.UserID,
		SessionID:    o.sess.ID,
		Items:        q.orderItems(),
		Shipping:     info.toOrder(),
		Subtotal:     q.Subtotal,
		ShippingCost: q.ShippingCost,
		Tax:          q.Tax,
		Total:        q.Total,
		AmountMinor:  q.AmountMinor,
		Currency:     q.Currency,
		Status:       order.StatusPaid,
		PaymentRef:   paid.PaymentRef,
		CreatedAt:    o.now().UTC(),
	}
}

// dispatchNotification sends the confirmation in the background. Failures
// are logged; the order stands.
func (o *Orchestrator) dispatchNotification(ctx context.Context, ref, email string, ord *order.Order) {
	if o.notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	o.notifyWG.Add(1)
	go func() {
		defer o.notifyWG.Done()
		if err := o.notifier.SendOrderConfirmation(ctx, ref, email, ord); err != nil {
			o.lg.Warn("Order confirmation not sent",
				zap.String("reference", ref),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until background notifications finish.
func (o *Orchestrator) Wait() {
	o.notifyWG.Wait()
}

// Close abandons the session and resets it to an empty Shipping phase. An
// unconfirmed authorization is left to expire at the gateway. A recorded
// order is unaffected.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.epoch++
	o.phase = PhaseShipping
	o.op = opNone
	o.shipping = ShippingInfo{}
	o.quote = nil
	o.auth = nil
	o.payment = PaymentDetails{}
	o.failure = nil
	o.reconcile = false
	o.paid = nil
	o.order = nil
	o.reference = ""
}

func (o *Orchestrator) countConfirmation(ctx context.Context, result string) {
	if o.confirmations == nil {
		return
	}
	o.confirmations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", result)))
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrGatewayDeclined):
		return "declined"
	case errors.Is(err, ErrGatewayAmbiguous):
		return "ambiguous"
	case errors.Is(err, ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
