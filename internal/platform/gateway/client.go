package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	cfgpkg "github.com/portdeck/portdeck/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrGateway marks transport or remote failures from the payment gateway.
// Callers must not retry inside the failing call; the checkout flow decides.
var ErrGateway = errors.New("gateway error")

const maxReceiptLen = 40

// RemoteOrder is the gateway's record of a payment to collect.
type RemoteOrder struct {
	ID               string `json:"id"`
	AmountMinorUnits int64  `json:"amount"`
	Currency         string `json:"currency"`
	Receipt          string `json:"receipt"`
	Status           string `json:"status"`
}

// Client wraps the remote payment gateway. It is stateless: order creation is
// one outbound call, signature checks are pure.
type Client struct {
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	httpClient    *http.Client
	log           *zap.SugaredLogger
}

func NewClient(cfg *cfgpkg.Config, log *zap.SugaredLogger) *Client {
	timeout := time.Duration(cfg.Gateway.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:       cfg.Gateway.BaseURL,
		keyID:         cfg.Gateway.KeyID,
		keySecret:     cfg.Gateway.KeySecret,
		webhookSecret: cfg.Gateway.WebhookSecret,
		httpClient:    &http.Client{Timeout: timeout},
		log:           log,
	}
}

// KeyID returns the public key id the browser checkout widget needs.
func (c *Client) KeyID() string { return c.keyID }

type createOrderRequest struct {
	AmountMinorUnits int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Receipt          string            `json:"receipt"`
	Notes            map[string]string `json:"notes,omitempty"`
}

// CreateRemoteOrder registers the payment with the gateway and returns the
// remote order reference. A transport error or non-2xx response maps to
// ErrGateway; nothing is persisted locally by this call.
func (c *Client) CreateRemoteOrder(ctx context.Context, amountMinorUnits int64, currency, receipt string, notes map[string]string) (*RemoteOrder, error) {
	if len(receipt) > maxReceiptLen {
		return nil, fmt.Errorf("receipt exceeds %d chars: %q", maxReceiptLen, receipt)
	}

	body, err := json.Marshal(createOrderRequest{
		AmountMinorUnits: amountMinorUnits,
		Currency:         currency,
		Receipt:          receipt,
		Notes:            notes,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: create order: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read order response: %v", ErrGateway, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: create order status %d: %s", ErrGateway, resp.StatusCode, respBody)
	}

	var out RemoteOrder
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: decode order response: %v", ErrGateway, err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%w: order response missing id", ErrGateway)
	}
	return &out, nil
}

var Module = fx.Options(
	fx.Provide(NewClient),
)
