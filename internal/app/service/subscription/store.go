package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/portdeck/portdeck/internal/models"
)

var ErrNotFound = errors.New("subscription not found")

// Store persists subscriptions. Creation happens exactly once per paid
// purchase order (provisioning owns it); Extend is the renewal write.
type Store interface {
	Create(ctx context.Context, sub *models.Subscription) error
	GetByID(ctx context.Context, id string) (*models.Subscription, error)
	// GetByOrderID resolves the subscription created for a purchase order.
	// The losing confirmation path uses this to return the winner's result.
	GetByOrderID(ctx context.Context, orderID string) (*models.Subscription, error)
	GetActiveByCustomer(ctx context.Context, customerID string) (*models.Subscription, error)
	// SetPort records the claimed port on the subscription.
	SetPort(ctx context.Context, subscriptionID, portID string) error
	// Extend moves EndDate, forces the status active and records the renewal
	// order in the same statement, so the extension and its marker are never
	// visible separately. Covers the lapsed-then-renewed case.
	Extend(ctx context.Context, subscriptionID, renewalOrderID string, newEnd time.Time) error
}
