package reconcile

import (
	"context"
	"errors"
	"strconv"

	"github.com/datavend/backend/internal/domain/bundle"
	domainErrors "github.com/datavend/backend/internal/domain/errors"
	"github.com/datavend/backend/internal/domain/event"
	"github.com/datavend/backend/internal/domain/ledger"
	"github.com/datavend/backend/internal/domain/order"
	"github.com/datavend/backend/internal/domain/outbox"
	"github.com/datavend/backend/internal/domain/reseller"
)

// OutcomeStatus classifies what processing an event did.
type OutcomeStatus string

const (
	// OutcomeApplied means the order was settled by this event.
	OutcomeApplied OutcomeStatus = "applied"
	// OutcomeSkipped means the order was already settled; nothing changed.
	OutcomeSkipped OutcomeStatus = "skipped"
	// OutcomeOrphaned means no order matches the event's reference. Retrying
	// cannot make the order appear, so the event is acknowledged and dropped.
	OutcomeOrphaned OutcomeStatus = "orphaned"
	// OutcomeIgnored means the event kind carries no side effects here.
	OutcomeIgnored OutcomeStatus = "ignored"
)

// Outcome reports what an event did so the worker loop can log and count it.
type Outcome struct {
	Status OutcomeStatus
	Order  *order.Order
}

// ProcessEventUseCase turns verified gateway events into settled orders. It is
// the single writer of the paid transition: order update, reseller credit,
// ledger append and the notification outbox entry commit in one transaction.
//
// The use case is safe to call any number of times with the same event. The
// payment-status gate skips settled orders cheaply, the conditional update in
// the order repository closes the race between two concurrent deliveries, and
// the ledger's unique (order_number, entry_type) key stops double crediting
// even if an earlier attempt crashed between writes.
type ProcessEventUseCase struct {
	orderRepo    order.Repository
	resellerRepo reseller.Repository
	bundleRepo   bundle.Repository
	ledgerRepo   ledger.Repository
	outboxRepo   OutboxWriter
	txManager    TransactionManager
	provider     string
	recipient    string
}

// NewProcessEventUseCase creates a new ProcessEventUseCase. provider names the
// gateway in ledger entries; recipient addresses the admin notification.
func NewProcessEventUseCase(
	orderRepo order.Repository,
	resellerRepo reseller.Repository,
	bundleRepo bundle.Repository,
	ledgerRepo ledger.Repository,
	outboxRepo OutboxWriter,
	txManager TransactionManager,
	provider string,
	recipient string,
) *ProcessEventUseCase {
	return &ProcessEventUseCase{
		orderRepo:    orderRepo,
		resellerRepo: resellerRepo,
		bundleRepo:   bundleRepo,
		ledgerRepo:   ledgerRepo,
		outboxRepo:   outboxRepo,
		txManager:    txManager,
		provider:     provider,
		recipient:    recipient,
	}
}

// Execute processes one gateway event. A returned error means the attempt
// failed in a way a redelivery may fix; every nil return is a final state and
// the message must be acknowledged.
func (uc *ProcessEventUseCase) Execute(ctx context.Context, evt *event.PaymentEvent) (Outcome, error) {
	switch evt.Kind {
	case event.KindChargeSucceeded:
		return uc.settleCharge(ctx, evt.Charge)
	default:
		return Outcome{Status: OutcomeIgnored}, nil
	}
}

func (uc *ProcessEventUseCase) settleCharge(ctx context.Context, charge *event.Charge) (Outcome, error) {
	// 1. The charge reference is the order number.
	o, err := uc.orderRepo.GetByOrderNumber(ctx, charge.Reference)
	if err != nil {
		if errors.Is(err, domainErrors.ErrOrderNotFound) {
			return Outcome{Status: OutcomeOrphaned}, nil
		}
		return Outcome{}, err
	}

	// 2. Idempotency gate: a settled order absorbs redeliveries and replays.
	if o.IsPaid() {
		return Outcome{Status: OutcomeSkipped, Order: o}, nil
	}

	// Orders reference bundles with a FK, so a lookup failure here is
	// transient and worth a redelivery.
	b, err := uc.bundleRepo.GetByID(ctx, o.BundleID)
	if err != nil {
		return Outcome{}, err
	}

	// 3. Apply the transition on the aggregate. An order whose payment
	// already failed or was refunded cannot settle; the error is permanent
	// and the event ends up dead-lettered for manual inspection.
	if err := o.MarkPaid(charge.ID, charge.Channel); err != nil {
		if errors.Is(err, domainErrors.ErrOrderAlreadyPaid) {
			return Outcome{Status: OutcomeSkipped, Order: o}, nil
		}
		return Outcome{}, err
	}

	txn, err := ledger.NewOrderPayment(
		o.OrderNumber,
		o.ResellerID,
		o.Amount,
		o.Currency,
		uc.provider,
		strconv.FormatInt(charge.ID, 10),
	)
	if err != nil {
		return Outcome{}, err
	}

	// 4. Steps 3-6 of the settlement commit or roll back together.
	settled := true
	err = uc.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		updated, err := uc.orderRepo.MarkPaid(txCtx, o)
		if err != nil {
			return err
		}
		if !updated {
			// A concurrent delivery won the conditional update.
			settled = false
			return nil
		}

		// Orders without an owning reseller settle without crediting anyone.
		if o.ResellerID != nil {
			if err := uc.resellerRepo.IncrementTotals(txCtx, *o.ResellerID, o.Commission, o.Amount); err != nil {
				return err
			}
		}

		if err := uc.ledgerRepo.Create(txCtx, txn); err != nil {
			// An existing entry for this order means a previous attempt
			// already recorded the payment; keep going.
			if !errors.Is(err, domainErrors.ErrDuplicateTransaction) {
				return err
			}
		}

		return uc.outboxRepo.Insert(txCtx, outbox.NewOrderPaidEntry(
			o.ID, o.OrderNumber, o.Amount, o.Currency, b.Name, uc.recipient,
		))
	})
	if err != nil {
		return Outcome{}, err
	}

	if !settled {
		return Outcome{Status: OutcomeSkipped, Order: o}, nil
	}
	return Outcome{Status: OutcomeApplied, Order: o}, nil
}
