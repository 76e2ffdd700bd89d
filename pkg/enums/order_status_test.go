package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	allowed := []struct {
		from OrderStatus
		to   OrderStatus
	}{
		{OrderStatusPending, OrderStatusProcessing},
		{OrderStatusPending, OrderStatusCancelled},
		{OrderStatusProcessing, OrderStatusShipped},
		{OrderStatusProcessing, OrderStatusRefunded},
		{OrderStatusShipped, OrderStatusDelivered},
		{OrderStatusShipped, OrderStatusRefunded},
		{OrderStatusDelivered, OrderStatusRefunded},
	}
	for _, tt := range allowed {
		if !tt.from.CanTransitionTo(tt.to) {
			t.Fatalf("expected %s -> %s to be allowed", tt.from, tt.to)
		}
	}

	denied := []struct {
		from OrderStatus
		to   OrderStatus
	}{
		{OrderStatusPending, OrderStatusShipped},
		{OrderStatusPending, OrderStatusRefunded},
		{OrderStatusProcessing, OrderStatusCancelled},
		{OrderStatusCancelled, OrderStatusProcessing},
		{OrderStatusRefunded, OrderStatusPending},
		{OrderStatusDelivered, OrderStatusShipped},
	}
	for _, tt := range denied {
		if tt.from.CanTransitionTo(tt.to) {
			t.Fatalf("expected %s -> %s to be rejected", tt.from, tt.to)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	if !OrderStatusCancelled.IsTerminal() {
		t.Fatal("cancelled should be terminal")
	}
	if !OrderStatusRefunded.IsTerminal() {
		t.Fatal("refunded should be terminal")
	}
	if OrderStatusPending.IsTerminal() {
		t.Fatal("pending should not be terminal")
	}
	if OrderStatus("bogus").IsTerminal() {
		t.Fatal("unknown status should not report terminal")
	}
}
