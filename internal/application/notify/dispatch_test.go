package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/datavend/backend/internal/application/notify"
	domainErrors "github.com/datavend/backend/internal/domain/errors"
	"github.com/datavend/backend/internal/testutil"
)

func TestDispatch_DeliversDecodedPayload(t *testing.T) {
	sink := testutil.NewMockSink()
	uc := notify.NewDispatchUseCase(sink)

	payload := []byte(`{"type":"order_paid","recipient":"admin","data":{"orderNumber":"ORD-981152373","amount":1700}}`)
	if err := uc.Execute(context.Background(), payload); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	delivered := sink.Delivered()
	if len(delivered) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(delivered))
	}
	if delivered[0]["type"] != "order_paid" {
		t.Errorf("type = %v, want order_paid", delivered[0]["type"])
	}
	if delivered[0]["recipient"] != "admin" {
		t.Errorf("recipient = %v, want admin", delivered[0]["recipient"])
	}
	data, ok := delivered[0]["data"].(map[string]any)
	if !ok {
		t.Fatalf("data is %T, want a map", delivered[0]["data"])
	}
	if data["orderNumber"] != "ORD-981152373" {
		t.Errorf("data.orderNumber = %v, want ORD-981152373", data["orderNumber"])
	}
}

func TestDispatch_MalformedPayload(t *testing.T) {
	sink := testutil.NewMockSink()
	uc := notify.NewDispatchUseCase(sink)

	for _, payload := range [][]byte{
		[]byte(`not json`),
		[]byte(`{}`),
	} {
		err := uc.Execute(context.Background(), payload)
		if !errors.Is(err, domainErrors.ErrMalformedEvent) {
			t.Errorf("Execute(%q) error = %v, want ErrMalformedEvent", payload, err)
		}
	}
	if got := len(sink.Delivered()); got != 0 {
		t.Errorf("deliveries = %d, want 0", got)
	}
}

func TestDispatch_SinkFailurePropagates(t *testing.T) {
	sink := testutil.NewMockSink()
	sinkDown := errors.New("sink unreachable")
	sink.DeliverFunc = func(ctx context.Context, payload map[string]any) error {
		return sinkDown
	}
	uc := notify.NewDispatchUseCase(sink)

	err := uc.Execute(context.Background(), []byte(`{"type":"order_paid"}`))
	if !errors.Is(err, sinkDown) {
		t.Fatalf("Execute() error = %v, want the sink error", err)
	}
}
