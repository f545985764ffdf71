package checkout

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"mmdr-storefront/internal/domain"

	"go.uber.org/zap"
)

type Stage int

const (
	StageShippingInfo Stage = iota + 1
	StagePayment
	StageConfirmation
)

func (s Stage) String() string {
	switch s {
	case StageShippingInfo:
		return "shipping"
	case StagePayment:
		return "payment"
	case StageConfirmation:
		return "confirmation"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrWrongStage   = errors.New("operation not allowed at this stage")
	ErrBusy         = errors.New("payment already in progress")
	ErrCardRequired = errors.New("card details required")
)

// PaymentError is a failed simulated charge. The orchestrator stays at the
// payment stage so the shopper can retry.
type PaymentError struct {
	Reason string
}

func (e *PaymentError) Error() string { return "payment failed: " + e.Reason }

// Cart is the part of the cart engine checkout needs.
type Cart interface {
	Snapshot() []domain.LineItem
	Clear(ctx context.Context)
}

type SalesClient interface {
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
}

// Outbox keeps sales the sales service did not accept.
type Outbox interface {
	Enqueue(ctx context.Context, sale domain.Sale, cause error) error
}

// DraftStore is satisfied by *storage.Document[Draft].
type DraftStore interface {
	Load(ctx context.Context) (Draft, bool, error)
	Save(ctx context.Context, d Draft) error
	Clear(ctx context.Context) error
}

type Deps struct {
	Cart     Cart
	Sales    SalesClient
	Outbox   Outbox
	Drafts   DraftStore
	Payments *Simulator
	Logger   *zap.Logger
}

// Result is what the confirmation stage shows.
type Result struct {
	Sale    domain.Sale
	Synced  bool
	SyncErr error
}

type Orchestrator struct {
	deps     Deps
	stage    Stage
	draft    Draft
	shipping *ShippingInfo
	card     *CardDetails
	result   *Result
	lastErr  error
	busy     atomic.Bool
	rng      *rand.Rand
	now      func() time.Time
	logger   *zap.Logger
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithRand fixes the source used for order numbers.
func WithRand(rng *rand.Rand) Option {
	return func(o *Orchestrator) { o.rng = rng }
}

func newOrchestrator(deps Deps, opts []Option) *Orchestrator {
	o := &Orchestrator{
		deps:   deps,
		stage:  StageShippingInfo,
		now:    time.Now,
		logger: deps.Logger,
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(o.now().UnixNano()))
	}
	if o.deps.Payments == nil {
		o.deps.Payments = NewSimulator(nil, DefaultPaymentDelay)
	}
	return o
}

// New starts a checkout from the cart's current contents, writing the draft.
func New(ctx context.Context, deps Deps, opts ...Option) (*Orchestrator, error) {
	items := deps.Cart.Snapshot()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	o := newOrchestrator(deps, opts)
	o.draft = NewDraft(items)
	if err := o.saveDraft(ctx); err != nil {
		o.logger.Warn("save checkout draft failed", zap.Error(err))
	}
	return o, nil
}

// Resume continues from a stored draft, falling back to New when there is
// none. Items and totals always come from the cart; only the shipping data
// is taken from the draft. A draft whose shipping data is valid resumes at
// payment.
func Resume(ctx context.Context, deps Deps, opts ...Option) (*Orchestrator, error) {
	if deps.Drafts == nil {
		return New(ctx, deps, opts...)
	}
	stored, ok, err := deps.Drafts.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load checkout draft: %w", err)
	}
	if !ok {
		return New(ctx, deps, opts...)
	}
	items := deps.Cart.Snapshot()
	if len(items) == 0 {
		if err := deps.Drafts.Clear(ctx); err != nil && deps.Logger != nil {
			deps.Logger.Warn("clear checkout draft failed", zap.Error(err))
		}
		return nil, ErrEmptyCart
	}
	o := newOrchestrator(deps, opts)
	o.draft = NewDraft(items)
	o.draft.Customer = stored.Customer
	if !sameItems(stored.Items, items) {
		o.logger.Info("cart changed since draft was saved, rebuilding")
		if err := o.saveDraft(ctx); err != nil {
			o.logger.Warn("save checkout draft failed", zap.Error(err))
		}
	}
	if stored.Customer != nil && stored.Customer.Validate() == nil {
		info := *stored.Customer
		o.shipping = &info
		o.stage = StagePayment
	}
	return o, nil
}

func sameItems(a, b []domain.LineItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Quantity != b[i].Quantity || a[i].UnitPrice != b[i].UnitPrice {
			return false
		}
	}
	return true
}

func (o *Orchestrator) Stage() Stage { return o.stage }

func (o *Orchestrator) Draft() Draft { return o.draft }

func (o *Orchestrator) Totals() domain.Totals { return o.draft.Totals() }

// LastError is the most recent validation or payment failure, if any.
func (o *Orchestrator) LastError() error { return o.lastErr }

func (o *Orchestrator) Result() (Result, bool) {
	if o.result == nil {
		return Result{}, false
	}
	return *o.result, true
}

// SubmitShipping validates the form and moves to the payment stage.
func (o *Orchestrator) SubmitShipping(ctx context.Context, info ShippingInfo) error {
	if o.stage != StageShippingInfo {
		return ErrWrongStage
	}
	if err := info.Validate(); err != nil {
		o.lastErr = err
		return err
	}
	o.shipping = &info
	o.card = nil
	o.lastErr = nil
	o.draft.Customer = &info
	if err := o.saveDraft(ctx); err != nil {
		o.logger.Warn("save checkout draft failed", zap.Error(err))
	}
	o.stage = StagePayment
	return nil
}

// SubmitCard validates the card sub-form. Card methods need it before Pay.
func (o *Orchestrator) SubmitCard(card CardDetails) error {
	if o.stage != StagePayment {
		return ErrWrongStage
	}
	if err := card.Validate(o.now()); err != nil {
		o.lastErr = err
		return err
	}
	o.card = &card
	o.lastErr = nil
	return nil
}

// Back returns from payment to the shipping form.
func (o *Orchestrator) Back() error {
	if o.stage != StagePayment {
		return ErrWrongStage
	}
	o.stage = StageShippingInfo
	return nil
}

// Reset abandons the current checkout and starts over from the cart's
// current contents. It is refused while a payment is running.
func (o *Orchestrator) Reset(ctx context.Context) error {
	if o.busy.Load() {
		return ErrBusy
	}
	items := o.deps.Cart.Snapshot()
	if len(items) == 0 {
		if o.deps.Drafts != nil {
			if err := o.deps.Drafts.Clear(ctx); err != nil {
				o.logger.Warn("clear checkout draft failed", zap.Error(err))
			}
		}
		return ErrEmptyCart
	}
	o.draft = NewDraft(items)
	o.shipping = nil
	o.card = nil
	o.result = nil
	o.lastErr = nil
	o.stage = StageShippingInfo
	if err := o.saveDraft(ctx); err != nil {
		o.logger.Warn("save checkout draft failed", zap.Error(err))
	}
	return nil
}

// Pay charges through the simulator. A failed charge leaves the stage at
// payment and returns *PaymentError. A successful one builds the sale,
// clears the cart and moves to confirmation even if the sales service is
// unreachable; in that case the sale goes to the outbox.
func (o *Orchestrator) Pay(ctx context.Context) (Result, error) {
	if o.stage != StagePayment {
		return Result{}, ErrWrongStage
	}
	if o.shipping.PaymentMethod.IsCard() && o.card == nil {
		return Result{}, ErrCardRequired
	}
	if !o.busy.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer o.busy.Store(false)

	outcome, err := o.deps.Payments.Process(ctx)
	if err != nil {
		return Result{}, err
	}
	if !outcome.Success {
		o.lastErr = &PaymentError{Reason: outcome.Reason}
		o.logger.Info("payment rejected", zap.String("reason", outcome.Reason))
		return Result{}, o.lastErr
	}

	now := o.now()
	sale := BuildSale(NewOrderNumber(now, o.rng), *o.shipping, o.draft, NewPaymentReference(), now)
	res := Result{Sale: sale}

	created, err := o.deps.Sales.CreateSale(ctx, sale)
	if err != nil {
		o.logger.Warn("submit sale failed, keeping local copy",
			zap.String("order_number", sale.OrderNumber), zap.Error(err))
		res.SyncErr = err
		if o.deps.Outbox != nil {
			if qerr := o.deps.Outbox.Enqueue(ctx, sale, err); qerr != nil {
				o.logger.Error("outbox enqueue failed", zap.String("order_number", sale.OrderNumber), zap.Error(qerr))
			}
		}
	} else {
		res.Synced = true
		if created != nil {
			res.Sale = *created
		}
	}

	o.deps.Cart.Clear(ctx)
	if o.deps.Drafts != nil {
		if err := o.deps.Drafts.Clear(ctx); err != nil {
			o.logger.Warn("clear checkout draft failed", zap.Error(err))
		}
	}
	o.card = nil
	o.lastErr = nil
	o.result = &res
	o.stage = StageConfirmation
	o.logger.Info("order confirmed", zap.String("order_number", res.Sale.OrderNumber), zap.Bool("synced", res.Synced))
	return res, nil
}

func (o *Orchestrator) saveDraft(ctx context.Context) error {
	if o.deps.Drafts == nil {
		return nil
	}
	return o.deps.Drafts.Save(ctx, o.draft)
}
