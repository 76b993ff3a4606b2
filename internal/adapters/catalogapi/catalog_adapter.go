package catalogapi

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/openkiosk/donation-engine/internal/domain/models"
	"github.com/openkiosk/donation-engine/internal/domain/ports"
)

// CatalogAdapter implements the CatalogService interface against the remote
// catalog HTTP API.
type CatalogAdapter struct {
	client
}

// NewCatalogAdapter creates a new catalog adapter with dependency injection
func NewCatalogAdapter(baseURL, authToken string, httpClient ports.HTTPClient, logger ports.Logger) *CatalogAdapter {
	return &CatalogAdapter{client{
		baseURL:    baseURL,
		authToken:  authToken,
		httpClient: httpClient,
		logger:     logger,
	}}
}

// NewCatalogAdapterWithDefaults creates a new catalog adapter with the
// default HTTP client
func NewCatalogAdapterWithDefaults(baseURL, authToken string, logger ports.Logger) *CatalogAdapter {
	return NewCatalogAdapter(baseURL, authToken, defaultHTTPClient(), logger)
}

// catalogItemWire is one item on the wire. Amounts travel as strings.
type catalogItemWire struct {
	ID       string `json:"id"`
	ParentID string `json:"parentId,omitempty"`
	Amount   string `json:"amount"`
	Kind     string `json:"kind"`
}

// ListResponse represents the response from the catalog list endpoint
type ListResponse struct {
	Items        []catalogItemWire `json:"items"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
}

// UpsertRequest represents the batch upsert payload
type UpsertRequest struct {
	OrgID        string   `json:"orgId"`
	Amounts      []string `json:"amounts"`
	ParentItemID string   `json:"parentItemId,omitempty"`
}

// UpsertResponse represents the response from the upsert endpoint
type UpsertResponse struct {
	ParentItemID string `json:"parentItemId"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// DeleteRequest represents the single-item delete payload
type DeleteRequest struct {
	OrgID  string `json:"orgId"`
	ItemID string `json:"itemId"`
}

// DeleteResponse represents the response from the delete endpoint
type DeleteResponse struct {
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// List implements CatalogService.List. Items whose amount does not parse are
// skipped with a warning; one bad entry never fails the fetch.
func (a *CatalogAdapter) List(ctx context.Context, orgID string) ([]models.CatalogItem, error) {
	endpoint := fmt.Sprintf("/v1/catalog/items?orgId=%s", orgID)

	var resp ListResponse
	if err := a.makeRequest(ctx, "GET", endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if err := inBandError(resp.ErrorMessage); err != nil {
		return nil, err
	}

	items := make([]models.CatalogItem, 0, len(resp.Items))
	for _, w := range resp.Items {
		amount, err := decimal.NewFromString(w.Amount)
		if err != nil {
			a.logger.Warn("skipping catalog item with unparseable amount",
				ports.String("item_id", w.ID),
				ports.String("amount", w.Amount))
			continue
		}
		items = append(items, models.CatalogItem{
			ID:            w.ID,
			ParentID:      w.ParentID,
			Amount:        amount,
			DisplayAmount: w.Amount,
			Kind:          models.CatalogItemKind(w.Kind),
		})
	}
	return items, nil
}

// Upsert implements CatalogService.Upsert
func (a *CatalogAdapter) Upsert(ctx context.Context, orgID string, amounts []decimal.Decimal, parentItemID string) (string, error) {
	wire := make([]string, len(amounts))
	for i, d := range amounts {
		wire[i] = d.String()
	}

	req := UpsertRequest{
		OrgID:        orgID,
		Amounts:      wire,
		ParentItemID: parentItemID,
	}

	var resp UpsertResponse
	if err := a.makeRequest(ctx, "POST", "/v1/catalog/upsert", req, &resp); err != nil {
		return "", err
	}
	if err := inBandError(resp.ErrorMessage); err != nil {
		return "", err
	}
	return resp.ParentItemID, nil
}

// Delete implements CatalogService.Delete
func (a *CatalogAdapter) Delete(ctx context.Context, orgID, itemID string) error {
	req := DeleteRequest{OrgID: orgID, ItemID: itemID}

	var resp DeleteResponse
	if err := a.makeRequest(ctx, "POST", "/v1/catalog/delete", req, &resp); err != nil {
		return err
	}
	return inBandError(resp.ErrorMessage)
}
