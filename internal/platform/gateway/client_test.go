package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	cfgpkg "github.com/portdeck/portdeck/pkg/config"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func clientFor(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := &cfgpkg.Config{}
	cfg.Gateway.BaseURL = baseURL
	cfg.Gateway.KeyID = "key_test"
	cfg.Gateway.KeySecret = "payment-secret"
	cfg.Gateway.TimeoutSeconds = 2
	return NewClient(cfg, zap.NewNop().Sugar())
}

func TestCreateRemoteOrder_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "key_test", user)
		require.Equal(t, "payment-secret", pass)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.EqualValues(t, 49900, req["amount"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "order_remote_1", "amount": 49900, "currency": "INR", "status": "created",
		})
	}))
	defer srv.Close()

	c := clientFor(t, srv.URL)
	out, err := c.CreateRemoteOrder(context.Background(), 49900, "INR", "rcpt_1", map[string]string{"order_id": "o1"})
	require.NoError(t, err)
	require.Equal(t, "order_remote_1", out.ID)
	require.EqualValues(t, 49900, out.AmountMinorUnits)
}

func TestCreateRemoteOrder_RemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"auth failed"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := clientFor(t, srv.URL)
	_, err := c.CreateRemoteOrder(context.Background(), 100, "INR", "rcpt_2", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrGateway))
}

func TestCreateRemoteOrder_TransportError(t *testing.T) {
	// point at a closed server
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := clientFor(t, srv.URL)
	_, err := c.CreateRemoteOrder(context.Background(), 100, "INR", "rcpt_3", nil)
	require.True(t, errors.Is(err, ErrGateway))
}

func TestCreateRemoteOrder_ReceiptTooLong(t *testing.T) {
	c := clientFor(t, "http://127.0.0.1:1")
	_, err := c.CreateRemoteOrder(context.Background(), 100, "INR", strings.Repeat("r", 41), nil)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrGateway))
}
