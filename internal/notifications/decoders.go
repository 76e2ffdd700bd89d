package notifications

import (
	"encoding/json"

	"github.com/velora-co/velora-backend/pkg/enums"
	"github.com/velora-co/velora-backend/pkg/outbox"
	"github.com/velora-co/velora-backend/pkg/outbox/payloads"
)

func decodeAs[T any](payload json.RawMessage) (interface{}, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// RegisterDecoders installs the version-1 payload decoders for every domain
// event the relay can deliver.
func RegisterDecoders(registry *outbox.DecoderRegistry) {
	registry.Register(enums.EventUserRegistered, 1, decodeAs[payloads.UserRegisteredEvent])
	registry.Register(enums.EventOrderPlaced, 1, decodeAs[payloads.OrderPlacedEvent])
	registry.Register(enums.EventPaymentConfirmed, 1, decodeAs[payloads.PaymentConfirmedEvent])
	registry.Register(enums.EventOrderCancelled, 1, decodeAs[payloads.OrderCancelledEvent])
	registry.Register(enums.EventOrderRefunded, 1, decodeAs[payloads.OrderRefundedEvent])
	registry.Register(enums.EventOrderShipped, 1, decodeAs[payloads.OrderShippedEvent])
	registry.Register(enums.EventOrderDelivered, 1, decodeAs[payloads.OrderDeliveredEvent])
	registry.Register(enums.EventStockAdjusted, 1, decodeAs[payloads.StockAdjustedEvent])
	registry.Register(enums.EventLowStockDetected, 1, decodeAs[payloads.LowStockDetectedEvent])
}
