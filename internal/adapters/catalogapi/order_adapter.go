package catalogapi

import (
	"context"

	"github.com/openkiosk/donation-engine/internal/domain/ports"
)

// OrderAdapter implements the OrderService interface against the remote
// order HTTP API.
type OrderAdapter struct {
	client
}

// NewOrderAdapter creates a new order adapter with dependency injection
func NewOrderAdapter(baseURL, authToken string, httpClient ports.HTTPClient, logger ports.Logger) *OrderAdapter {
	return &OrderAdapter{client{
		baseURL:    baseURL,
		authToken:  authToken,
		httpClient: httpClient,
		logger:     logger,
	}}
}

// NewOrderAdapterWithDefaults creates a new order adapter with the default
// HTTP client
func NewOrderAdapterWithDefaults(baseURL, authToken string, logger ports.Logger) *OrderAdapter {
	return NewOrderAdapter(baseURL, authToken, defaultHTTPClient(), logger)
}

// lineItemWire is one order line on the wire: a catalog reference or a
// custom line with explicit base money.
type lineItemWire struct {
	Name            string     `json:"name,omitempty"`
	Quantity        int        `json:"quantity"`
	BaseMoney       *moneyWire `json:"baseMoney,omitempty"`
	CatalogObjectID string     `json:"catalogObjectId,omitempty"`
}

type moneyWire struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateOrderRequest represents the order creation payload
type CreateOrderRequest struct {
	OrgID     string         `json:"orgId"`
	LineItems []lineItemWire `json:"lineItems"`
	Note      string         `json:"note,omitempty"`
}

// CreateOrderResponse represents the response from the order endpoint. An
// empty OrderID on a successful response is the caller's problem to flag.
type CreateOrderResponse struct {
	OrderID      string `json:"orderId"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// CreateOrder implements OrderService.CreateOrder
func (a *OrderAdapter) CreateOrder(ctx context.Context, orgID string, lineItems []ports.OrderLineItem, note string) (string, error) {
	wire := make([]lineItemWire, len(lineItems))
	for i, li := range lineItems {
		w := lineItemWire{
			Name:            li.Name,
			Quantity:        li.Quantity,
			CatalogObjectID: li.CatalogObjectID,
		}
		if li.CatalogObjectID == "" {
			w.BaseMoney = &moneyWire{
				Amount:   li.BaseMoneyMinorUnits,
				Currency: li.Currency,
			}
		}
		wire[i] = w
	}

	req := CreateOrderRequest{
		OrgID:     orgID,
		LineItems: wire,
		Note:      note,
	}

	var resp CreateOrderResponse
	if err := a.makeRequest(ctx, "POST", "/v1/orders", req, &resp); err != nil {
		return "", err
	}
	if err := inBandError(resp.ErrorMessage); err != nil {
		return "", err
	}
	return resp.OrderID, nil
}
