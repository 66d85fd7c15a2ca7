// Package storetest provides in-memory Store/Pool implementations with the
// same atomicity guarantees as the database-backed ones. Test support only.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/portdeck/portdeck/internal/app/service/order"
	"github.com/portdeck/portdeck/internal/app/service/port"
	"github.com/portdeck/portdeck/internal/app/service/subscription"
	"github.com/portdeck/portdeck/internal/models"
	"github.com/portdeck/portdeck/pkg/tool"
	"github.com/portdeck/portdeck/pkg/types"
)

// Orders is an in-memory order.Store. The mutex stands in for the database's
// row-level atomicity on the conditional transitions.
type Orders struct {
	mu   sync.Mutex
	rows map[string]*models.Order
}

func NewOrders() *Orders { return &Orders{rows: map[string]*models.Order{}} }

func (s *Orders) Create(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = tool.GenerateUUIDV7()
	}
	if o.Status == "" {
		o.Status = types.OrderStatusPending
	}
	cp := *o
	s.rows[o.ID] = &cp
	return nil
}

func (s *Orders) GetByID(_ context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", order.ErrNotFound, id)
	}
	cp := *o
	return &cp, nil
}

func (s *Orders) GetByGatewayOrderID(_ context.Context, gid string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.rows {
		if o.GatewayOrderID == gid {
			cp := *o
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: gateway order %s", order.ErrNotFound, gid)
}

func (s *Orders) ConfirmPaid(_ context.Context, orderID, gatewayPaymentID string) (order.ConfirmOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.rows[orderID]
	if !ok {
		return order.ConfirmNotFound, nil
	}
	if o.Status != types.OrderStatusPending {
		return order.ConfirmAlreadyProcessed, nil
	}
	o.Status = types.OrderStatusSuccess
	pid := gatewayPaymentID
	o.GatewayPaymentID = &pid
	return order.ConfirmWon, nil
}

func (s *Orders) ConfirmFailed(_ context.Context, orderID string) (order.ConfirmOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.rows[orderID]
	if !ok {
		return order.ConfirmNotFound, nil
	}
	if o.Status != types.OrderStatusPending {
		return order.ConfirmAlreadyProcessed, nil
	}
	o.Status = types.OrderStatusFailed
	return order.ConfirmWon, nil
}

func (s *Orders) Scan(_ context.Context, req *order.ScanOrdersRequest) (*order.ScanOrdersResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Order, 0, len(s.rows))
	for _, o := range s.rows {
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := int64(len(out))
	return &order.ScanOrdersResponse{Items: paginate(out, req.From, req.Size), Total: total}, nil
}

// paginate mirrors the offset/limit behavior of the gorm stores, including
// the default page size.
func paginate[T any](rows []T, from, size int) []T {
	if size <= 0 {
		size = 10
	}
	if from < 0 {
		from = 0
	}
	if from >= len(rows) {
		return []T{}
	}
	end := from + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[from:end]
}

// Pool is an in-memory port.Pool with exactly-once claim semantics.
type Pool struct {
	mu   sync.Mutex
	rows map[string]*models.Port
}

func NewPool() *Pool { return &Pool{rows: map[string]*models.Port{}} }

func (p *Pool) Add(_ context.Context, row *models.Port) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if row.ID == "" {
		row.ID = tool.GenerateUUIDV7()
	}
	if row.Status == "" {
		row.Status = types.PortStatusAvailable
	}
	cp := *row
	p.rows[row.ID] = &cp
	return nil
}

func (p *Pool) ClaimOne(_ context.Context, planID, subscriptionID string) (*models.Port, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.rows))
	for id := range p.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		row := p.rows[id]
		if row.Status != types.PortStatusAvailable {
			continue
		}
		if planID != "" && row.PlanID != nil && *row.PlanID != planID {
			continue
		}
		row.Status = types.PortStatusAllocated
		sid := subscriptionID
		row.AllocatedSubscriptionID = &sid
		cp := *row
		return &cp, nil
	}
	return nil, port.ErrNoneAvailable
}

func (p *Pool) Release(_ context.Context, portID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	row, ok := p.rows[portID]
	if !ok || row.Status != types.PortStatusAllocated {
		return nil
	}
	row.Status = types.PortStatusAvailable
	row.AllocatedSubscriptionID = nil
	return nil
}

func (p *Pool) CheckAvailability(_ context.Context, planID string) (*port.Availability, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var count int64
	for _, row := range p.rows {
		if row.Status != types.PortStatusAvailable {
			continue
		}
		if planID != "" && row.PlanID != nil && *row.PlanID != planID {
			continue
		}
		count++
	}
	return &port.Availability{Available: count > 0, Count: count}, nil
}

func (p *Pool) GetByID(_ context.Context, portID string) (*models.Port, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	row, ok := p.rows[portID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", port.ErrNotFound, portID)
	}
	cp := *row
	return &cp, nil
}

func (p *Pool) Scan(_ context.Context, req *port.ScanPortsRequest) (*port.ScanPortsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*models.Port, 0, len(p.rows))
	for _, row := range p.rows {
		cp := *row
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := int64(len(out))
	return &port.ScanPortsResponse{Items: paginate(out, req.From, req.Size), Total: total}, nil
}

// Subs is an in-memory subscription.Store enforcing the one-per-order rule.
type Subs struct {
	mu   sync.Mutex
	rows map[string]*models.Subscription
}

func NewSubs() *Subs { return &Subs{rows: map[string]*models.Subscription{}} }

func (s *Subs) Create(_ context.Context, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rows {
		if existing.OrderID == sub.OrderID {
			return fmt.Errorf("duplicate subscription for order %s", sub.OrderID)
		}
	}
	if sub.ID == "" {
		sub.ID = tool.GenerateUUIDV7()
	}
	cp := *sub
	s.rows[sub.ID] = &cp
	return nil
}

func (s *Subs) GetByID(_ context.Context, id string) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", subscription.ErrNotFound, id)
	}
	cp := *sub
	return &cp, nil
}

func (s *Subs) GetByOrderID(_ context.Context, orderID string) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.rows {
		if sub.OrderID == orderID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: order %s", subscription.ErrNotFound, orderID)
}

func (s *Subs) GetActiveByCustomer(_ context.Context, customerID string) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.Subscription
	for _, sub := range s.rows {
		if sub.CustomerID != customerID || sub.Status != types.SubscriptionStatusActive {
			continue
		}
		if best == nil || sub.EndDate.After(best.EndDate) {
			best = sub
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: customer %s", subscription.ErrNotFound, customerID)
	}
	cp := *best
	return &cp, nil
}

func (s *Subs) SetPort(_ context.Context, subscriptionID, portID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.rows[subscriptionID]
	if !ok {
		return fmt.Errorf("%w: %s", subscription.ErrNotFound, subscriptionID)
	}
	pid := portID
	sub.PortID = &pid
	return nil
}

func (s *Subs) Extend(_ context.Context, subscriptionID, renewalOrderID string, newEnd time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.rows[subscriptionID]
	if !ok {
		return fmt.Errorf("%w: %s", subscription.ErrNotFound, subscriptionID)
	}
	oid := renewalOrderID
	sub.EndDate = newEnd
	sub.Status = types.SubscriptionStatusActive
	sub.LastRenewalOrderID = &oid
	return nil
}

// Count reports how many subscriptions exist; used by race assertions.
func (s *Subs) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
