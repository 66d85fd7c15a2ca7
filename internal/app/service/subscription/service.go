package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/portdeck/portdeck/internal/models"
	"github.com/portdeck/portdeck/pkg/tool"
	"github.com/portdeck/portdeck/pkg/types"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) Store {
	return &Service{db: db, log: log}
}

func (s *Service) Create(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == "" {
		sub.ID = tool.GenerateUUIDV7()
	}
	if sub.Status == "" {
		sub.Status = types.SubscriptionStatusActive
	}
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

func (s *Service) GetByOrderID(ctx context.Context, orderID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription by order: %w", err)
	}
	return &sub, nil
}

func (s *Service) GetActiveByCustomer(ctx context.Context, customerID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).
		Where("customer_id = ? AND status = ?", customerID, types.SubscriptionStatusActive).
		Order("end_date DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: customer %s", ErrNotFound, customerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}
	return &sub, nil
}

func (s *Service) SetPort(ctx context.Context, subscriptionID, portID string) error {
	res := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ?", subscriptionID).
		Update("port_id", portID)
	if res.Error != nil {
		return fmt.Errorf("failed to set subscription port: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, subscriptionID)
	}
	return nil
}

func (s *Service) Extend(ctx context.Context, subscriptionID, renewalOrderID string, newEnd time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ?", subscriptionID).
		Updates(map[string]any{
			"end_date":              newEnd,
			"status":                types.SubscriptionStatusActive,
			"last_renewal_order_id": renewalOrderID,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to extend subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, subscriptionID)
	}
	return nil
}
