package order

import (
	"context"
	"errors"

	"github.com/portdeck/portdeck/internal/models"
	"github.com/portdeck/portdeck/pkg/types"
)

// ErrNotFound is returned when an order id or gateway order id is unknown.
var ErrNotFound = errors.New("order not found")

// ConfirmOutcome is the closed result set of a guarded order transition.
type ConfirmOutcome string

const (
	// ConfirmWon means this caller performed the transition and owns the
	// follow-up work (subscription creation, port claim).
	ConfirmWon ConfirmOutcome = "won"
	// ConfirmAlreadyProcessed means the other confirmation path got there
	// first. Idempotent success, never an error.
	ConfirmAlreadyProcessed ConfirmOutcome = "already_processed"
	ConfirmNotFound         ConfirmOutcome = "not_found"
)

type ScanOrdersRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanOrdersResponse struct {
	Items []*models.Order `json:"items"`
	Total int64           `json:"total"`
}

// Store persists orders and exposes the atomic conditional transitions the
// confirmation paths coordinate through. The browser redirect and the webhook
// share no process memory, so the compare-and-set here is the only arbiter.
type Store interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	// ConfirmPaid runs "status=success, gateway_payment_id=? WHERE id=? AND
	// status=pending" as one statement and reports who won. Safe to call any
	// number of times with the same arguments.
	ConfirmPaid(ctx context.Context, orderID, gatewayPaymentID string) (ConfirmOutcome, error)
	// ConfirmFailed is the symmetric guarded transition to failed. A late
	// failure notification can never override an already-succeeded order.
	ConfirmFailed(ctx context.Context, orderID string) (ConfirmOutcome, error)
	Scan(ctx context.Context, req *ScanOrdersRequest) (*ScanOrdersResponse, error)
}
