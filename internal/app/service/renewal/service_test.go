package renewal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/portdeck/portdeck/internal/app/service/storetest"
	"github.com/portdeck/portdeck/internal/models"
	"github.com/portdeck/portdeck/pkg/config"
	"github.com/portdeck/portdeck/pkg/types"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc    *Service
	orders *storetest.Orders
	subs   *storetest.Subs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		Plans: []*types.Plan{{ID: "plan_basic", BillingPeriodMonths: 1, PriceMinorUnits: 49900, Currency: "INR"}},
	}
	orders := storetest.NewOrders()
	subs := storetest.NewSubs()
	return &fixture{
		svc:    NewService(cfg, zap.NewNop().Sugar(), orders, subs).(*Service),
		orders: orders,
		subs:   subs,
	}
}

func (f *fixture) seed(t *testing.T, endDate time.Time) (*models.Order, *models.Subscription) {
	t.Helper()
	ctx := context.Background()
	sub := &models.Subscription{
		ID:         "sub_1",
		CustomerID: "cust_1",
		PlanID:     "plan_basic",
		OrderID:    "orig_order",
		Status:     types.SubscriptionStatusActive,
		StartDate:  endDate.AddDate(0, -1, 0),
		EndDate:    endDate,
	}
	require.NoError(t, f.subs.Create(ctx, sub))

	sid := sub.ID
	o := &models.Order{
		ID:             "ren_1",
		CustomerID:     "cust_1",
		PlanID:         "plan_basic",
		Kind:           types.OrderKindRenewal,
		Status:         types.OrderStatusPending,
		SubscriptionID: &sid,
		GatewayOrderID: "gw_ren_1",
	}
	require.NoError(t, f.orders.Create(ctx, o))
	return o, sub
}

func TestRenewal_BeforeExpiry_ExtendsFromEndDate(t *testing.T) {
	f := newFixture(t)
	end := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	f.seed(t, end)
	f.svc.now = func() time.Time { return time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC) }

	res, err := f.svc.ProcessSuccessfulRenewal(context.Background(), "ren_1", "pay_ren")
	require.NoError(t, err)
	require.False(t, res.AlreadyProcessed)
	require.Equal(t, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), res.Subscription.EndDate)
}

func TestRenewal_AfterExpiry_ExtendsFromNow(t *testing.T) {
	f := newFixture(t)
	end := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	_, sub := f.seed(t, end)
	// lapse it first
	require.NoError(t, f.subs.Extend(context.Background(), sub.ID, "orig_order", end))
	f.svc.now = func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) }

	res, err := f.svc.ProcessSuccessfulRenewal(context.Background(), "ren_1", "pay_ren")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), res.Subscription.EndDate)
	require.Equal(t, types.SubscriptionStatusActive, res.Subscription.Status)
}

func TestRenewal_Replay_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	end := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	f.seed(t, end)
	f.svc.now = func() time.Time { return time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC) }

	res1, err := f.svc.ProcessSuccessfulRenewal(context.Background(), "ren_1", "pay_ren")
	require.NoError(t, err)

	res2, err := f.svc.ProcessSuccessfulRenewal(context.Background(), "ren_1", "pay_ren")
	require.NoError(t, err)
	require.True(t, res2.AlreadyProcessed)
	// no second extension happened
	require.Equal(t, res1.Subscription.EndDate, res2.Subscription.EndDate)
}

// gatedExtendSubs holds the winner inside Extend so a concurrent caller can be
// driven into the window between the order flip and the extension write.
type gatedExtendSubs struct {
	*storetest.Subs
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedExtendSubs) Extend(ctx context.Context, subscriptionID, renewalOrderID string, newEnd time.Time) error {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.Subs.Extend(ctx, subscriptionID, renewalOrderID, newEnd)
}

func TestRenewal_LoserDuringCommitWindow_SeesExtension(t *testing.T) {
	cfg := &config.Config{
		Plans: []*types.Plan{{ID: "plan_basic", BillingPeriodMonths: 1, PriceMinorUnits: 49900, Currency: "INR"}},
	}
	orders := storetest.NewOrders()
	gated := &gatedExtendSubs{Subs: storetest.NewSubs(), entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(cfg, zap.NewNop().Sugar(), orders, gated).(*Service)
	svc.now = func() time.Time { return time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	end := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, gated.Subs.Create(ctx, &models.Subscription{
		ID:         "sub_1",
		CustomerID: "cust_1",
		PlanID:     "plan_basic",
		OrderID:    "orig_order",
		Status:     types.SubscriptionStatusActive,
		StartDate:  end.AddDate(0, -1, 0),
		EndDate:    end,
	}))
	sid := "sub_1"
	require.NoError(t, orders.Create(ctx, &models.Order{
		ID:             "ren_1",
		CustomerID:     "cust_1",
		PlanID:         "plan_basic",
		Kind:           types.OrderKindRenewal,
		Status:         types.OrderStatusPending,
		SubscriptionID: &sid,
		GatewayOrderID: "gw_ren_1",
	}))

	type outcome struct {
		res *Result
		err error
	}
	winner := make(chan outcome, 1)
	go func() {
		res, err := svc.ProcessSuccessfulRenewal(ctx, "ren_1", "pay_ren")
		winner <- outcome{res, err}
	}()

	// order is already SUCCESS here but EndDate still holds the old value;
	// the loser must report the extended window, not the stale one
	<-gated.entered
	loser := make(chan outcome, 1)
	go func() {
		res, err := svc.ProcessSuccessfulRenewal(ctx, "ren_1", "pay_ren")
		loser <- outcome{res, err}
	}()

	time.Sleep(50 * time.Millisecond)
	close(gated.release)

	w := <-winner
	l := <-loser
	require.NoError(t, w.err)
	require.NoError(t, l.err)
	require.False(t, w.res.AlreadyProcessed)
	require.True(t, l.res.AlreadyProcessed)
	extended := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	require.Equal(t, extended, w.res.Subscription.EndDate)
	require.Equal(t, extended, l.res.Subscription.EndDate)
}

func TestRenewal_NonRenewalOrder_Rejected(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orders.Create(context.Background(), &models.Order{
		ID: "o_purchase", CustomerID: "cust_1", PlanID: "plan_basic",
		Kind: types.OrderKindPurchase, Status: types.OrderStatusPending, GatewayOrderID: "gw_p",
	}))

	_, err := f.svc.ProcessSuccessfulRenewal(context.Background(), "o_purchase", "pay_x")
	require.Error(t, err)
}

func TestProcessFailedRenewal_LeavesSubscriptionAlone(t *testing.T) {
	f := newFixture(t)
	end := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	_, sub := f.seed(t, end)

	require.NoError(t, f.svc.ProcessFailedRenewal(context.Background(), "ren_1"))

	o, err := f.orders.GetByID(context.Background(), "ren_1")
	require.NoError(t, err)
	require.Equal(t, types.OrderStatusFailed, o.Status)

	got, err := f.subs.GetByID(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Equal(t, end, got.EndDate)
	require.Equal(t, types.SubscriptionStatusActive, got.Status)
}
