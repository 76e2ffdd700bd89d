package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder     OutboxAggregateType = "order"
	AggregatePayment   OutboxAggregateType = "payment"
	AggregateInventory OutboxAggregateType = "inventory"
	AggregateUser      OutboxAggregateType = "user"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePayment,
	AggregateInventory,
	AggregateUser,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderPlaced      OutboxEventType = "order_placed"
	EventPaymentConfirmed OutboxEventType = "payment_confirmed"
	EventOrderCancelled   OutboxEventType = "order_cancelled"
	EventOrderRefunded    OutboxEventType = "order_refunded"
	EventOrderShipped     OutboxEventType = "order_shipped"
	EventOrderDelivered   OutboxEventType = "order_delivered"
	EventStockAdjusted    OutboxEventType = "stock_adjusted"
	EventLowStockDetected OutboxEventType = "low_stock_detected"
	EventUserRegistered   OutboxEventType = "user_registered"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventPaymentConfirmed,
	EventOrderCancelled,
	EventOrderRefunded,
	EventOrderShipped,
	EventOrderDelivered,
	EventStockAdjusted,
	EventLowStockDetected,
	EventUserRegistered,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
