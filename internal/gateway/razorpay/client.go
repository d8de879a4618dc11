package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/utsavplanner/bookings-and-payments/internal/domain"
)

const defaultBaseURL = "https://api.razorpay.com"

// Config holds Razorpay credentials. KeyID doubles as the public key the
// client-side checkout widget needs.
type Config struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
}

type Client struct {
	httpClient *http.Client
	config     Config
}

type CreateOrderRequest struct {
	Amount   int64  `json:"amount"` // minor units (paise)
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}
}

// KeyID returns the public key for the checkout widget.
func (c *Client) KeyID() string {
	return c.config.KeyID
}

// CreateOrder mints a gateway order for the amount in paise. Only INR is
// accepted. Missing credentials or an unreachable gateway surface as
// domain.ErrGatewayUnavailable.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if req.Amount <= 0 {
		return nil, domain.NewValidationError("amount", "must be a positive integer in paise")
	}
	if req.Currency != "INR" {
		return nil, errors.Wrapf(domain.ErrUnsupportedCurrency, "%q", req.Currency)
	}
	if strings.TrimSpace(c.config.KeyID) == "" || strings.TrimSpace(c.config.KeySecret) == "" {
		return nil, errors.Wrap(domain.ErrGatewayUnavailable, "gateway credentials not configured")
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode order request")
	}

	base := c.config.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	url := strings.TrimRight(base, "/") + "/v1/orders"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, errors.Wrap(domain.ErrGatewayUnavailable, err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.config.KeyID, c.config.KeySecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(domain.ErrGatewayUnavailable, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(domain.ErrGatewayUnavailable, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Wrapf(domain.ErrGatewayUnavailable, "gateway returned %d: %s", resp.StatusCode, string(body))
	}

	var out Order
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.Wrap(domain.ErrGatewayUnavailable, "failed to parse gateway response")
	}
	return &out, nil
}
