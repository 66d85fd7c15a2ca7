package provisioning

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/portdeck/portdeck/internal/app/service/order"
	"github.com/portdeck/portdeck/internal/app/service/storetest"
	"github.com/portdeck/portdeck/internal/models"
	"github.com/portdeck/portdeck/pkg/config"
	"github.com/portdeck/portdeck/pkg/types"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		Plans: []*types.Plan{
			{ID: "plan_basic", Name: "Basic", BillingPeriodMonths: 1, PriceMinorUnits: 49900, Currency: "INR"},
			{ID: "plan_year", Name: "Yearly", BillingPeriodMonths: 12, PriceMinorUnits: 499000, Currency: "INR"},
		},
	}
}

type fixture struct {
	svc    *Service
	orders *storetest.Orders
	pool   *storetest.Pool
	subs   *storetest.Subs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	orders := storetest.NewOrders()
	pool := storetest.NewPool()
	subs := storetest.NewSubs()
	svc := NewService(testConfig(), zap.NewNop().Sugar(), orders, pool, subs).(*Service)
	return &fixture{svc: svc, orders: orders, pool: pool, subs: subs}
}

func (f *fixture) pendingOrder(t *testing.T, id, planID string) *models.Order {
	t.Helper()
	o := &models.Order{
		ID:               id,
		CustomerID:       "cust_1",
		PlanID:           planID,
		Kind:             types.OrderKindPurchase,
		Status:           types.OrderStatusPending,
		AmountMinorUnits: 49900,
		Currency:         "INR",
		GatewayOrderID:   "gw_" + id,
	}
	require.NoError(t, f.orders.Create(context.Background(), o))
	return o
}

func TestProcessSuccessfulPayment_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.pendingOrder(t, "o1", "plan_basic")
	require.NoError(t, f.pool.Add(ctx, &models.Port{ID: "p1", InstanceURL: "https://node1.example.com"}))

	res, err := f.svc.ProcessSuccessfulPayment(ctx, "o1", "pay_123")
	require.NoError(t, err)
	require.False(t, res.AlreadyProcessed)
	require.True(t, res.PortAllocated)
	require.NotNil(t, res.Port)
	require.Equal(t, "p1", res.Port.ID)
	require.Equal(t, types.SubscriptionStatusActive, res.Subscription.Status)
	require.NotNil(t, res.Subscription.PortID)

	o, err := f.orders.GetByID(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, types.OrderStatusSuccess, o.Status)
	require.NotNil(t, o.GatewayPaymentID)
	require.Equal(t, "pay_123", *o.GatewayPaymentID)

	avail, err := f.pool.CheckAvailability(ctx, "")
	require.NoError(t, err)
	require.EqualValues(t, 0, avail.Count)

	// replay returns the same subscription and claims nothing further
	res2, err := f.svc.ProcessSuccessfulPayment(ctx, "o1", "pay_123")
	require.NoError(t, err)
	require.True(t, res2.AlreadyProcessed)
	require.Equal(t, res.Subscription.ID, res2.Subscription.ID)
	require.Equal(t, 1, f.subs.Count())
}

func TestProcessSuccessfulPayment_Idempotent_Sequential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.pendingOrder(t, "o1", "plan_basic")
	require.NoError(t, f.pool.Add(ctx, &models.Port{InstanceURL: "https://node1.example.com"}))

	for i := 0; i < 5; i++ {
		_, err := f.svc.ProcessSuccessfulPayment(ctx, "o1", "pay_123")
		require.NoError(t, err)
	}
	require.Equal(t, 1, f.subs.Count())
	avail, err := f.pool.CheckAvailability(ctx, "")
	require.NoError(t, err)
	require.EqualValues(t, 0, avail.Count)
}

func TestProcessSuccessfulPayment_RaceResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.pendingOrder(t, "o1", "plan_basic")
	require.NoError(t, f.pool.Add(ctx, &models.Port{InstanceURL: "https://node1.example.com"}))

	// redirect handler and webhook handler firing at once
	const callers = 8
	results := make([]*Result, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.ProcessSuccessfulPayment(ctx, "o1", "pay_123")
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	won := 0
	for _, res := range results {
		if !res.AlreadyProcessed {
			won++
		}
		require.Equal(t, results[0].Subscription.ID, res.Subscription.ID)
	}
	require.Equal(t, 1, won)
	require.Equal(t, 1, f.subs.Count())
}

// gatedSubs holds the winner inside Create so a concurrent caller can be
// driven into the window between the order flip and the subscription insert.
type gatedSubs struct {
	*storetest.Subs
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedSubs) Create(ctx context.Context, sub *models.Subscription) error {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.Subs.Create(ctx, sub)
}

func TestProcessSuccessfulPayment_LoserDuringCommitWindow(t *testing.T) {
	orders := storetest.NewOrders()
	pool := storetest.NewPool()
	gated := &gatedSubs{Subs: storetest.NewSubs(), entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(testConfig(), zap.NewNop().Sugar(), orders, pool, gated).(*Service)

	ctx := context.Background()
	require.NoError(t, orders.Create(ctx, &models.Order{
		ID:             "o1",
		CustomerID:     "cust_1",
		PlanID:         "plan_basic",
		Kind:           types.OrderKindPurchase,
		Status:         types.OrderStatusPending,
		GatewayOrderID: "gw_o1",
	}))
	require.NoError(t, pool.Add(ctx, &models.Port{InstanceURL: "https://node1.example.com"}))

	type outcome struct {
		res *Result
		err error
	}
	winner := make(chan outcome, 1)
	go func() {
		res, err := svc.ProcessSuccessfulPayment(ctx, "o1", "pay_123")
		winner <- outcome{res, err}
	}()

	// order is already SUCCESS here but the winner's subscription is not
	// visible yet; the loser must wait it out, not fail
	<-gated.entered
	loser := make(chan outcome, 1)
	go func() {
		res, err := svc.ProcessSuccessfulPayment(ctx, "o1", "pay_123")
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
	require.Equal(t, w.res.Subscription.ID, l.res.Subscription.ID)
}

func TestProcessSuccessfulPayment_PoolEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.pendingOrder(t, "o1", "plan_basic")

	res, err := f.svc.ProcessSuccessfulPayment(ctx, "o1", "pay_123")
	require.NoError(t, err)
	require.False(t, res.PortAllocated)
	require.Nil(t, res.Port)
	require.NotEmpty(t, res.PortMessage)
	require.Nil(t, res.Subscription.PortID)

	// the purchase is final regardless of capacity
	o, err := f.orders.GetByID(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, types.OrderStatusSuccess, o.Status)
}

func TestProcessSuccessfulPayment_PortExclusivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.pool.Add(ctx, &models.Port{InstanceURL: "https://node1.example.com"}))

	const orders = 10
	for i := 0; i < orders; i++ {
		f.pendingOrder(t, string(rune('a'+i)), "plan_basic")
	}

	var wg sync.WaitGroup
	allocated := make([]bool, orders)
	errs := make([]error, orders)
	for i := 0; i < orders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var res *Result
			res, errs[i] = f.svc.ProcessSuccessfulPayment(ctx, string(rune('a'+i)), "pay_x")
			if res != nil {
				allocated[i] = res.PortAllocated
			}
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	claims := 0
	for _, ok := range allocated {
		if ok {
			claims++
		}
	}
	require.Equal(t, 1, claims)
}

func TestProcessSuccessfulPayment_PlanAffinity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := "plan_year"
	require.NoError(t, f.pool.Add(ctx, &models.Port{InstanceURL: "https://node1.example.com", PlanID: &other}))
	f.pendingOrder(t, "o1", "plan_basic")

	res, err := f.svc.ProcessSuccessfulPayment(ctx, "o1", "pay_123")
	require.NoError(t, err)
	require.False(t, res.PortAllocated)
}

func TestProcessSuccessfulPayment_SubscriptionWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.pendingOrder(t, "o1", "plan_year")
	fixed := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }

	res, err := f.svc.ProcessSuccessfulPayment(ctx, "o1", "pay_123")
	require.NoError(t, err)
	require.Equal(t, fixed, res.Subscription.StartDate)
	require.Equal(t, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), res.Subscription.EndDate)
}

func TestProcessSuccessfulPayment_UnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ProcessSuccessfulPayment(context.Background(), "missing", "pay_123")
	require.True(t, errors.Is(err, order.ErrNotFound))
}

func TestProcessFailedPayment_Monotonic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.pendingOrder(t, "o1", "plan_basic")

	_, err := f.svc.ProcessSuccessfulPayment(ctx, "o1", "pay_123")
	require.NoError(t, err)

	// a late failure notification must not override success
	require.NoError(t, f.svc.ProcessFailedPayment(ctx, "o1"))
	o, err := f.orders.GetByID(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, types.OrderStatusSuccess, o.Status)
}

func TestProcessFailedPayment_Pending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.pendingOrder(t, "o1", "plan_basic")

	require.NoError(t, f.svc.ProcessFailedPayment(ctx, "o1"))
	o, err := f.orders.GetByID(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, types.OrderStatusFailed, o.Status)

	// failed is terminal; success can no longer happen
	res, err := f.svc.ProcessSuccessfulPayment(ctx, "o1", "pay_123")
	require.Error(t, err)
	require.Nil(t, res)
}
