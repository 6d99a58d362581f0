package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/datavend/backend/internal/application/reconcile"
	"github.com/datavend/backend/internal/domain/bundle"
	domainErrors "github.com/datavend/backend/internal/domain/errors"
	"github.com/datavend/backend/internal/domain/event"
	"github.com/datavend/backend/internal/domain/ledger"
	"github.com/datavend/backend/internal/domain/order"
	"github.com/datavend/backend/internal/testutil"
	"github.com/google/uuid"
)

type fixture struct {
	orders    *testutil.MockOrderRepository
	resellers *testutil.MockResellerRepository
	bundles   *testutil.MockBundleRepository
	ledger    *testutil.MockLedgerRepository
	outbox    *testutil.MockOutboxRepository
	uc        *reconcile.ProcessEventUseCase
}

func newFixture() *fixture {
	f := &fixture{
		orders:    testutil.NewMockOrderRepository(),
		resellers: testutil.NewMockResellerRepository(),
		bundles:   testutil.NewMockBundleRepository(),
		ledger:    testutil.NewMockLedgerRepository(),
		outbox:    testutil.NewMockOutboxRepository(),
	}
	f.uc = reconcile.NewProcessEventUseCase(
		f.orders, f.resellers, f.bundles, f.ledger, f.outbox,
		testutil.NewMockTransactionManager(), "paystack", "admin",
	)
	return f
}

func TestProcessEvent_ChargeSucceeded_SettlesOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	rs := testutil.NewTestReseller("amaka-data")
	f.resellers.AddReseller(rs)
	b := testutil.NewTestBundle(bundle.NetworkMTN, 2048, 1200, 500)
	f.bundles.AddBundle(b)
	o := testutil.NewTestOrder(rs.ID, b.ID, 1700, 500)
	o.OrderNumber = "ORD-981152373"
	f.orders.AddOrder(o)

	outcome, err := f.uc.Execute(ctx, testutil.NewChargeEvent("ORD-981152373", 1700))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != reconcile.OutcomeApplied {
		t.Fatalf("expected outcome applied, got %s", outcome.Status)
	}

	// Order settled
	settled := f.orders.GetOrderByNumber("ORD-981152373")
	if settled.PaymentStatus != order.PaymentPaid {
		t.Errorf("expected payment status paid, got %s", settled.PaymentStatus)
	}
	if settled.Status != order.StatusProcessing {
		t.Errorf("expected status processing, got %s", settled.Status)
	}
	if settled.GatewayTxID == nil || *settled.GatewayTxID != 4099260516 {
		t.Errorf("expected gateway tx id recorded, got %v", settled.GatewayTxID)
	}
	if settled.PaymentChannel == nil || *settled.PaymentChannel != "card" {
		t.Errorf("expected payment channel card, got %v", settled.PaymentChannel)
	}
	if settled.PaidAt == nil {
		t.Error("expected paid_at to be set")
	}

	// Reseller credited
	credited := f.resellers.GetResellerByID(rs.ID)
	if credited.TotalEarnings != 500 {
		t.Errorf("expected total earnings 500, got %d", credited.TotalEarnings)
	}
	if credited.TotalSales != 1700 {
		t.Errorf("expected total sales 1700, got %d", credited.TotalSales)
	}
	if credited.TotalOrders != 1 {
		t.Errorf("expected total orders 1, got %d", credited.TotalOrders)
	}

	// Exactly one completed ledger entry for the order amount
	txns := f.ledger.Transactions()
	if len(txns) != 1 {
		t.Fatalf("expected 1 ledger transaction, got %d", len(txns))
	}
	txn := txns[0]
	if txn.Amount != 1700 {
		t.Errorf("expected ledger amount 1700, got %d", txn.Amount)
	}
	if txn.Status != ledger.StatusCompleted {
		t.Errorf("expected ledger status completed, got %s", txn.Status)
	}
	if txn.EntryType != ledger.EntryOrderPayment {
		t.Errorf("expected entry type order_payment, got %s", txn.EntryType)
	}
	if txn.Provider != "paystack" {
		t.Errorf("expected provider paystack, got %s", txn.Provider)
	}
	if txn.ProviderRef != "4099260516" {
		t.Errorf("expected provider ref 4099260516, got %s", txn.ProviderRef)
	}

	// One notification queued through the outbox
	entries := f.outbox.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 outbox entry, got %d", len(entries))
	}
	if entries[0].Payload["recipient"] != "admin" {
		t.Errorf("expected recipient admin, got %v", entries[0].Payload["recipient"])
	}
	data, ok := entries[0].Payload["data"].(map[string]any)
	if !ok {
		t.Fatal("expected data payload map")
	}
	if data["orderNumber"] != "ORD-981152373" {
		t.Errorf("expected orderNumber in payload, got %v", data["orderNumber"])
	}
	if data["bundle"] != b.Name {
		t.Errorf("expected bundle name %q, got %v", b.Name, data["bundle"])
	}
}

func TestProcessEvent_NoReseller_SettlesWithoutCredit(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	b := testutil.NewTestBundle(bundle.NetworkMTN, 2048, 1200, 0)
	f.bundles.AddBundle(b)
	o := testutil.NewTestOrder(uuid.New(), b.ID, 1200, 0)
	o.ResellerID = nil
	f.orders.AddOrder(o)

	f.resellers.IncrementTotalsFunc = func(_ context.Context, id uuid.UUID, _, _ int64) error {
		t.Errorf("unexpected credit for reseller %s", id)
		return nil
	}

	outcome, err := f.uc.Execute(ctx, testutil.NewChargeEvent(o.OrderNumber, 1200))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != reconcile.OutcomeApplied {
		t.Fatalf("expected outcome applied, got %s", outcome.Status)
	}

	settled := f.orders.GetOrderByNumber(o.OrderNumber)
	if settled.PaymentStatus != order.PaymentPaid {
		t.Errorf("expected payment status paid, got %s", settled.PaymentStatus)
	}

	txns := f.ledger.Transactions()
	if len(txns) != 1 {
		t.Fatalf("expected 1 ledger transaction, got %d", len(txns))
	}
	if txns[0].ResellerID != nil {
		t.Errorf("expected ledger entry without reseller, got %s", txns[0].ResellerID)
	}
	if got := len(f.outbox.Entries()); got != 1 {
		t.Errorf("expected 1 outbox entry, got %d", got)
	}
}

func TestProcessEvent_Replay_CreditsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	rs := testutil.NewTestReseller("amaka-data")
	f.resellers.AddReseller(rs)
	b := testutil.NewTestBundle(bundle.NetworkMTN, 2048, 1200, 500)
	f.bundles.AddBundle(b)
	o := testutil.NewTestOrder(rs.ID, b.ID, 1700, 500)
	f.orders.AddOrder(o)

	evt := testutil.NewChargeEvent(o.OrderNumber, 1700)

	for i := 0; i < 3; i++ {
		outcome, err := f.uc.Execute(ctx, evt)
		if err != nil {
			t.Fatalf("replay %d: unexpected error: %v", i+1, err)
		}
		want := reconcile.OutcomeSkipped
		if i == 0 {
			want = reconcile.OutcomeApplied
		}
		if outcome.Status != want {
			t.Errorf("replay %d: expected outcome %s, got %s", i+1, want, outcome.Status)
		}
	}

	credited := f.resellers.GetResellerByID(rs.ID)
	if credited.TotalEarnings != 500 {
		t.Errorf("expected total earnings 500 after replays, got %d", credited.TotalEarnings)
	}
	if credited.TotalOrders != 1 {
		t.Errorf("expected total orders 1 after replays, got %d", credited.TotalOrders)
	}
	if got := len(f.ledger.Transactions()); got != 1 {
		t.Errorf("expected 1 ledger transaction after replays, got %d", got)
	}
	if got := len(f.outbox.Entries()); got != 1 {
		t.Errorf("expected 1 outbox entry after replays, got %d", got)
	}
}

func TestProcessEvent_UnknownOrder_DiscardedWithoutRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	outcome, err := f.uc.Execute(ctx, testutil.NewChargeEvent("ORD-000000000", 1700))
	if err != nil {
		t.Fatalf("expected nil error for unknown order, got %v", err)
	}
	if outcome.Status != reconcile.OutcomeOrphaned {
		t.Errorf("expected outcome orphaned, got %s", outcome.Status)
	}
	if got := len(f.ledger.Transactions()); got != 0 {
		t.Errorf("expected no ledger transactions, got %d", got)
	}
	if got := len(f.outbox.Entries()); got != 0 {
		t.Errorf("expected no outbox entries, got %d", got)
	}
}

func TestProcessEvent_UnrecognizedKind_Ignored(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	outcome, err := f.uc.Execute(ctx, &event.PaymentEvent{Kind: event.KindOther, Name: "transfer.success"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != reconcile.OutcomeIgnored {
		t.Errorf("expected outcome ignored, got %s", outcome.Status)
	}
}

func TestProcessEvent_ConcurrentDelivery_LoserSkips(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	rs := testutil.NewTestReseller("amaka-data")
	f.resellers.AddReseller(rs)
	b := testutil.NewTestBundle(bundle.NetworkGlo, 1024, 800, 200)
	f.bundles.AddBundle(b)
	o := testutil.NewTestOrder(rs.ID, b.ID, 1000, 200)
	f.orders.AddOrder(o)

	// Another worker settles the row between the gate and the update.
	f.orders.MarkPaidFunc = func(_ context.Context, _ *order.Order) (bool, error) {
		return false, nil
	}

	outcome, err := f.uc.Execute(ctx, testutil.NewChargeEvent(o.OrderNumber, 1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != reconcile.OutcomeSkipped {
		t.Errorf("expected outcome skipped, got %s", outcome.Status)
	}

	credited := f.resellers.GetResellerByID(rs.ID)
	if credited.TotalEarnings != 0 {
		t.Errorf("expected no credit for losing delivery, got %d", credited.TotalEarnings)
	}
	if got := len(f.ledger.Transactions()); got != 0 {
		t.Errorf("expected no ledger transactions, got %d", got)
	}
}

func TestProcessEvent_FailedOrder_ErrorsForInspection(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	rs := testutil.NewTestReseller("amaka-data")
	f.resellers.AddReseller(rs)
	b := testutil.NewTestBundle(bundle.NetworkAirtel, 512, 400, 100)
	f.bundles.AddBundle(b)
	o := testutil.NewTestOrder(rs.ID, b.ID, 500, 100)
	if err := o.MarkPaymentFailed(); err != nil {
		t.Fatalf("fixture setup: %v", err)
	}
	f.orders.AddOrder(o)

	_, err := f.uc.Execute(ctx, testutil.NewChargeEvent(o.OrderNumber, 500))
	if !errors.Is(err, domainErrors.ErrInvalidStateTransition) {
		t.Errorf("expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestProcessEvent_TransientLedgerFailure_Propagates(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	rs := testutil.NewTestReseller("amaka-data")
	f.resellers.AddReseller(rs)
	b := testutil.NewTestBundle(bundle.NetworkMTN, 2048, 1200, 500)
	f.bundles.AddBundle(b)
	o := testutil.NewTestOrder(rs.ID, b.ID, 1700, 500)
	f.orders.AddOrder(o)

	dbDown := errors.New("connection refused")
	f.ledger.CreateFunc = func(_ context.Context, _ *ledger.Transaction) error {
		return dbDown
	}

	_, err := f.uc.Execute(ctx, testutil.NewChargeEvent(o.OrderNumber, 1700))
	if !errors.Is(err, dbDown) {
		t.Errorf("expected transient error to propagate, got %v", err)
	}
	if got := len(f.outbox.Entries()); got != 0 {
		t.Errorf("expected no outbox entry after failed attempt, got %d", got)
	}
}

func TestProcessEvent_DuplicateLedgerEntry_TreatedAsRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	rs := testutil.NewTestReseller("amaka-data")
	f.resellers.AddReseller(rs)
	b := testutil.NewTestBundle(bundle.NetworkMTN, 2048, 1200, 500)
	f.bundles.AddBundle(b)
	o := testutil.NewTestOrder(rs.ID, b.ID, 1700, 500)
	f.orders.AddOrder(o)

	// A crashed earlier attempt left a ledger entry behind.
	f.ledger.CreateFunc = func(_ context.Context, _ *ledger.Transaction) error {
		return domainErrors.ErrDuplicateTransaction
	}

	outcome, err := f.uc.Execute(ctx, testutil.NewChargeEvent(o.OrderNumber, 1700))
	if err != nil {
		t.Fatalf("expected duplicate ledger entry to be tolerated, got %v", err)
	}
	if outcome.Status != reconcile.OutcomeApplied {
		t.Errorf("expected outcome applied, got %s", outcome.Status)
	}
	if got := len(f.outbox.Entries()); got != 1 {
		t.Errorf("expected notification still queued, got %d entries", got)
	}
}

func TestProcessEvent_ConcurrentOrders_CreditsAccumulate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	rs := testutil.NewTestReseller("amaka-data")
	f.resellers.AddReseller(rs)
	b := testutil.NewTestBundle(bundle.NetworkMTN, 2048, 1200, 500)
	f.bundles.AddBundle(b)

	const n = 8
	orders := make([]*order.Order, n)
	for i := range orders {
		o := testutil.NewTestOrder(rs.ID, b.ID, 1700, 500)
		o.OrderNumber = fmt.Sprintf("ORD-10000000%d", i)
		orders[i] = o
		f.orders.AddOrder(o)
	}

	var wg sync.WaitGroup
	for _, o := range orders {
		wg.Add(1)
		go func(num string) {
			defer wg.Done()
			if _, err := f.uc.Execute(ctx, testutil.NewChargeEvent(num, 1700)); err != nil {
				t.Errorf("order %s: %v", num, err)
			}
		}(o.OrderNumber)
	}
	wg.Wait()

	credited := f.resellers.GetResellerByID(rs.ID)
	if credited.TotalEarnings != n*500 {
		t.Errorf("expected total earnings %d, got %d", n*500, credited.TotalEarnings)
	}
	if credited.TotalSales != n*1700 {
		t.Errorf("expected total sales %d, got %d", n*1700, credited.TotalSales)
	}
	if credited.TotalOrders != n {
		t.Errorf("expected total orders %d, got %d", n, credited.TotalOrders)
	}
	if got := len(f.ledger.Transactions()); got != n {
		t.Errorf("expected %d ledger transactions, got %d", n, got)
	}
}
