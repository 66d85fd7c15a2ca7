package port

import (
	"context"
	"errors"
	"fmt"

	"github.com/portdeck/portdeck/internal/models"
	"github.com/portdeck/portdeck/pkg/logctx"
	"github.com/portdeck/portdeck/pkg/tool"
	"github.com/portdeck/portdeck/pkg/types"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) Pool {
	return &Service{db: db, log: log}
}

// ClaimOne selects one available row under a row lock (SKIP LOCKED keeps
// concurrent claimers off each other's candidate) and flips it to allocated
// inside the same transaction. Plain read-then-write would double-allocate
// under concurrent checkouts.
func (s *Service) ClaimOne(ctx context.Context, planID, subscriptionID string) (*models.Port, error) {
	var claimed *models.Port
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Port
		q := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", types.PortStatusAvailable)
		if planID != "" {
			q = q.Where("plan_id IS NULL OR plan_id = ?", planID)
		}
		if err := q.Order("id").First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoneAvailable
			}
			return fmt.Errorf("failed to pick port: %w", err)
		}

		res := tx.Model(&models.Port{}).
			Where("id = ? AND status = ?", p.ID, types.PortStatusAvailable).
			Updates(map[string]any{
				"status":                    types.PortStatusAllocated,
				"allocated_subscription_id": subscriptionID,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to allocate port: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// the locked row changed under us; treat as empty pool
			return ErrNoneAvailable
		}

		p.Status = types.PortStatusAllocated
		p.AllocatedSubscriptionID = &subscriptionID
		claimed = &p
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNoneAvailable) {
			return nil, ErrNoneAvailable
		}
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("port_claimed", "port_id", claimed.ID, "subscription_id", subscriptionID)
	return claimed, nil
}

func (s *Service) Release(ctx context.Context, portID string) error {
	res := s.db.WithContext(ctx).Model(&models.Port{}).
		Where("id = ? AND status = ?", portID, types.PortStatusAllocated).
		Updates(map[string]any{
			"status":                    types.PortStatusAvailable,
			"allocated_subscription_id": nil,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to release port: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		logctx.FromCtx(ctx, s.log).Infow("port_release_noop", "port_id", portID)
	}
	return nil
}

func (s *Service) CheckAvailability(ctx context.Context, planID string) (*Availability, error) {
	q := s.db.WithContext(ctx).Model(&models.Port{}).
		Where("status = ?", types.PortStatusAvailable)
	if planID != "" {
		q = q.Where("plan_id IS NULL OR plan_id = ?", planID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count available ports: %w", err)
	}
	return &Availability{Available: count > 0, Count: count}, nil
}

func (s *Service) GetByID(ctx context.Context, portID string) (*models.Port, error) {
	var p models.Port
	err := s.db.WithContext(ctx).Where("id = ?", portID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, portID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get port: %w", err)
	}
	return &p, nil
}

func (s *Service) Add(ctx context.Context, p *models.Port) error {
	if p.ID == "" {
		p.ID = tool.GenerateUUIDV7()
	}
	if p.Status == "" {
		p.Status = types.PortStatusAvailable
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to add port: %w", err)
	}
	return nil
}

type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

func (s *Service) Scan(ctx context.Context, req *ScanPortsRequest) (*ScanPortsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Port{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count ports: %w", err)
	}

	var rows []*models.Port
	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}

	return &ScanPortsResponse{Items: rows, Total: total}, nil
}
