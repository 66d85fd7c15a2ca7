package port

import (
	"context"
	"errors"

	"github.com/portdeck/portdeck/internal/models"
	"github.com/portdeck/portdeck/pkg/types"
)

// ErrNoneAvailable means the pool has no claimable port. The purchase still
// stands; provisioning finishes out of band.
var ErrNoneAvailable = errors.New("no port available")

var ErrNotFound = errors.New("port not found")

// Availability is the advisory pre-checkout capacity snapshot.
type Availability struct {
	Available bool  `json:"available"`
	Count     int64 `json:"count"`
}

type ScanPortsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanPortsResponse struct {
	Items []*models.Port `json:"items"`
	Total int64          `json:"total"`
}

// Pool manages the finite set of provisioning slots. ClaimOne is the only
// allocation authority; CheckAvailability is a best-effort read that reserves
// nothing and can be stale by the time a claim runs.
type Pool interface {
	// ClaimOne atomically picks one available port (honoring plan affinity
	// when planID is non-empty), binds it to subscriptionID and returns it.
	// An empty pool yields ErrNoneAvailable, not a failure.
	ClaimOne(ctx context.Context, planID, subscriptionID string) (*models.Port, error)
	// Release returns a port to the pool, clearing the subscription binding.
	// Releasing an already-available port is a no-op.
	Release(ctx context.Context, portID string) error
	// CheckAvailability counts available ports. Advisory only.
	CheckAvailability(ctx context.Context, planID string) (*Availability, error)
	GetByID(ctx context.Context, portID string) (*models.Port, error)
	Add(ctx context.Context, p *models.Port) error
	Scan(ctx context.Context, req *ScanPortsRequest) (*ScanPortsResponse, error)
}
