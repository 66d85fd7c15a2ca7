package storetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/portdeck/portdeck/internal/app/service/order"
	"github.com/portdeck/portdeck/internal/models"
	"github.com/portdeck/portdeck/pkg/types"

	"github.com/stretchr/testify/require"
)

func TestOrdersScan_NilRequestRejected(t *testing.T) {
	s := NewOrders()
	_, err := s.Scan(context.Background(), nil)
	require.Error(t, err)
}

func TestPoolScan_NilRequestRejected(t *testing.T) {
	p := NewPool()
	_, err := p.Scan(context.Background(), nil)
	require.Error(t, err)
}

func TestOrdersScan_Pagination(t *testing.T) {
	s := NewOrders()
	ctx := context.Background()
	for i := 0; i < 15; i++ {
		require.NoError(t, s.Create(ctx, &models.Order{
			ID:             fmt.Sprintf("o_%02d", i),
			CustomerID:     "cust_1",
			PlanID:         "plan_basic",
			Kind:           types.OrderKindPurchase,
			Status:         types.OrderStatusPending,
			GatewayOrderID: fmt.Sprintf("gw_%02d", i),
		}))
	}

	// zero size falls back to the default page of 10; total stays unpaged
	res, err := s.Scan(ctx, &order.ScanOrdersRequest{})
	require.NoError(t, err)
	require.Len(t, res.Items, 10)
	require.EqualValues(t, 15, res.Total)

	res, err = s.Scan(ctx, &order.ScanOrdersRequest{From: 10, Size: 10})
	require.NoError(t, err)
	require.Len(t, res.Items, 5)
	require.Equal(t, "o_10", res.Items[0].ID)

	res, err = s.Scan(ctx, &order.ScanOrdersRequest{From: 100, Size: 10})
	require.NoError(t, err)
	require.Empty(t, res.Items)
	require.EqualValues(t, 15, res.Total)
}
