package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/openkiosk/donation-engine/internal/domain/models"
)

// CatalogService is the remote product-catalog collaborator. Errors surface
// either as a transport failure or as a message field on an otherwise-200
// response; implementations fold both into the returned error.
type CatalogService interface {
	// List fetches the donation-amount items for the organization.
	List(ctx context.Context, orgID string) ([]models.CatalogItem, error)

	// Upsert pushes the given amounts as sibling items under parentItemID
	// (empty to let the service create a parent) and returns the parent id.
	Upsert(ctx context.Context, orgID string, amounts []decimal.Decimal, parentItemID string) (string, error)

	// Delete removes a single catalog item.
	Delete(ctx context.Context, orgID, itemID string) error
}

// OrderLineItem is one line of an order: either a custom line (Name +
// BaseMoneyMinorUnits set) or a catalog reference (CatalogObjectID set).
type OrderLineItem struct {
	Name                string
	Quantity            int
	BaseMoneyMinorUnits int64
	Currency            string
	CatalogObjectID     string
}

// OrderService creates orders on the remote order service. A successful
// response carries the created order id; callers treat an empty id on an
// otherwise-successful response as a malformed response.
type OrderService interface {
	CreateOrder(ctx context.Context, orgID string, lineItems []OrderLineItem, note string) (string, error)
}
