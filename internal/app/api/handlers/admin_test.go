package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/portdeck/portdeck/internal/app/service/storetest"
	"github.com/portdeck/portdeck/internal/models"
	"github.com/portdeck/portdeck/pkg/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type adminFixture struct {
	orders *storetest.Orders
	pool   *storetest.Pool
	router *gin.Engine
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	orders := storetest.NewOrders()
	pool := storetest.NewPool()
	r := gin.New()
	RegisterAdminRoutes(r.Group("/api/v1/admin"), zap.NewNop().Sugar(), orders, pool)
	return &adminFixture{orders: orders, pool: pool, router: r}
}

func (f *adminFixture) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)
	return w
}

func TestAdminAddAndScanPorts(t *testing.T) {
	f := newAdminFixture(t)

	w := f.post(t, "/api/v1/admin/port", `{"instance_url":"https://node1.example.com","plan_id":"plan-basic"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var addResp struct {
		Code int         `json:"code"`
		Data models.Port `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &addResp))
	require.Zero(t, addResp.Code)
	require.NotEmpty(t, addResp.Data.ID)
	require.Equal(t, types.PortStatusAvailable, addResp.Data.Status)
	require.NotNil(t, addResp.Data.PlanID)
	require.Equal(t, "plan-basic", *addResp.Data.PlanID)

	w = f.post(t, "/api/v1/admin/port/list", `{"from":0,"size":10}`)
	require.Equal(t, http.StatusOK, w.Code)
	var listResp struct {
		Code int `json:"code"`
		Data struct {
			Items []struct {
				ID     string `json:"id"`
				PlanID string `json:"plan_id"`
			} `json:"items"`
			Total int64 `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	require.EqualValues(t, 1, listResp.Data.Total)
	require.Equal(t, "plan-basic", listResp.Data.Items[0].PlanID)
}

func TestAdminAddPort_MissingURL(t *testing.T) {
	f := newAdminFixture(t)

	w := f.post(t, "/api/v1/admin/port", `{"plan_id":"plan-basic"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.EqualValues(t, 40000, resp.Code)
}

func TestAdminReleasePort(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	p := &models.Port{ID: "port-1", Status: types.PortStatusAvailable, InstanceURL: "https://node1.example.com"}
	require.NoError(t, f.pool.Add(ctx, p))
	_, err := f.pool.ClaimOne(ctx, "", "sub-1")
	require.NoError(t, err)

	w := f.post(t, "/api/v1/admin/port/release", `{"port_id":"port-1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	got, err := f.pool.GetByID(ctx, "port-1")
	require.NoError(t, err)
	require.Equal(t, types.PortStatusAvailable, got.Status)
	require.Nil(t, got.AllocatedSubscriptionID)
}

func TestAdminReleasePort_Unknown(t *testing.T) {
	f := newAdminFixture(t)

	w := f.post(t, "/api/v1/admin/port/release", `{"port_id":"nope"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Code int `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.EqualValues(t, 40400, resp.Code)
}

func TestAdminScanOrders(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	for _, gid := range []string{"gw_1", "gw_2"} {
		require.NoError(t, f.orders.Create(ctx, &models.Order{
			CustomerID:     "cust-1",
			PlanID:         "plan-basic",
			Kind:           types.OrderKindPurchase,
			Status:         types.OrderStatusPending,
			GatewayOrderID: gid,
		}))
	}

	w := f.post(t, "/api/v1/admin/order/list", `{"from":0,"size":10}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Code int `json:"code"`
		Data struct {
			Items []*models.Order `json:"items"`
			Total int64           `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.EqualValues(t, 2, resp.Data.Total)
	require.Len(t, resp.Data.Items, 2)
}
