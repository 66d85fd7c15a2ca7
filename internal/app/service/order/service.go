package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/portdeck/portdeck/internal/models"
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

func NewService(db *gorm.DB, log *zap.SugaredLogger) Store {
	return &Service{db: db, log: log}
}

func (s *Service) Create(ctx context.Context, o *models.Order) error {
	if o.ID == "" {
		o.ID = tool.GenerateUUIDV7()
	}
	if o.Status == "" {
		o.Status = types.OrderStatusPending
	}
	if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

func (s *Service) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	var o models.Order
	err := s.db.WithContext(ctx).Where("gateway_order_id = ?", gatewayOrderID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: gateway order %s", ErrNotFound, gatewayOrderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order by gateway order id: %w", err)
	}
	return &o, nil
}

// ConfirmPaid is the idempotency core: a single conditional UPDATE guarded by
// status=pending. Zero rows affected means either the order is unknown or the
// other delivery path already finalized it; the re-read distinguishes the two.
func (s *Service) ConfirmPaid(ctx context.Context, orderID, gatewayPaymentID string) (ConfirmOutcome, error) {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, types.OrderStatusPending).
		Updates(map[string]any{
			"status":             types.OrderStatusSuccess,
			"gateway_payment_id": gatewayPaymentID,
		})
	if res.Error != nil {
		return "", fmt.Errorf("failed to confirm order paid: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return ConfirmWon, nil
	}
	return s.loserOutcome(ctx, orderID)
}

func (s *Service) ConfirmFailed(ctx context.Context, orderID string) (ConfirmOutcome, error) {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, types.OrderStatusPending).
		Update("status", types.OrderStatusFailed)
	if res.Error != nil {
		return "", fmt.Errorf("failed to confirm order failed: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return ConfirmWon, nil
	}
	return s.loserOutcome(ctx, orderID)
}

func (s *Service) loserOutcome(ctx context.Context, orderID string) (ConfirmOutcome, error) {
	_, err := s.GetByID(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return ConfirmNotFound, nil
	}
	if err != nil {
		return "", err
	}
	return ConfirmAlreadyProcessed, nil
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression.
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

// Scan implements paginated admin listing with filters.
func (s *Service) Scan(ctx context.Context, req *ScanOrdersRequest) (*ScanOrdersResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Order{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var rows []*models.Order
	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return &ScanOrdersResponse{Items: rows, Total: total}, nil
}
