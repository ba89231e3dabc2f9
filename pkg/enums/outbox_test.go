package enums

import "testing"

func TestOutboxEnumsParseCaseInsensitively(t *testing.T) {
	evt, err := ParseOutboxEventType(" Order.Created ")
	if err != nil || evt != EventOrderCreated {
		t.Fatalf("expected order.created, got %q err=%v", evt, err)
	}
	if _, err := ParseOutboxAggregateType("store"); err == nil {
		t.Fatalf("expected unknown aggregate to fail")
	}
	if !OutboxDLQReasonMaxAttempts.IsValid() || OutboxDLQErrorReason("timeout").IsValid() {
		t.Fatalf("unexpected dlq reason validity")
	}
}

func TestParseOrderStatusErrorNamesInput(t *testing.T) {
	_, err := ParseOrderStatus("lost")
	if err == nil || err.Error() != `invalid order status "lost"` {
		t.Fatalf("unexpected error %v", err)
	}
}
