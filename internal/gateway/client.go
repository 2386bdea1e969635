package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	customError "github.com/coursebill/installment-engine/pkg/errors"
)

// OrderRequest asks the gateway to open an order for one installment's
// amount. Amount is in integer minor units.
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is the gateway's opaque order handle. The engine stores only the
// id and never trusts the rest without a signed settlement callback.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Client is the payment gateway collaborator. Order creation is pure
// delegation; settlement verification happens locally (see signature.go),
// the engine never asks the gateway to validate its own callback.
type Client interface {
	CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error)
}

type httpClient struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
}

// NewHTTPClient returns a Client backed by the gateway's REST API.
// Timeout bounds every order creation call; a timed-out call is a failure,
// retry is the caller's responsibility.
func NewHTTPClient(baseURL, keyID, keySecret string, timeout time.Duration) Client {
	return &httpClient{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		client:    &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, customError.WrapGatewayError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, customError.WrapGatewayError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, customError.WrapGatewayError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, customError.WrapGatewayError(fmt.Errorf("gateway returned status %d", resp.StatusCode))
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, customError.WrapGatewayError(err)
	}
	if order.ID == "" {
		return nil, customError.WrapGatewayError(fmt.Errorf("gateway response missing order id"))
	}

	return &order, nil
}
