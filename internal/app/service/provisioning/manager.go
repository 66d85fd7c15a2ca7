package provisioning

import "context"

// Manager is what the confirmation entrypoints (redirect handler, webhook
// handler) program against.
type Manager interface {
	// ProcessSuccessfulPayment finalizes a paid purchase order exactly once.
	ProcessSuccessfulPayment(ctx context.Context, orderID, gatewayPaymentID string) (*Result, error)
	// ProcessFailedPayment records a failed payment; no-op on finalized orders.
	ProcessFailedPayment(ctx context.Context, orderID string) error
}
