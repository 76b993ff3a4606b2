package models

import "github.com/shopspring/decimal"

// CatalogItemKind tags the entity type of a remote catalog record.
type CatalogItemKind string

const (
	// KindDonationAmount marks items representing a donatable amount.
	// Other kinds exist in the remote catalog but are ignored here.
	KindDonationAmount CatalogItemKind = "donation_amount"
)

// CatalogItem is a remote donation item. It is owned by the remote catalog
// service: the engine never mutates one directly, it only requests
// upserts/deletes and re-fetches.
type CatalogItem struct {
	ID            string          `json:"id"`
	ParentID      string          `json:"parentId"`
	Amount        decimal.Decimal `json:"amount"`
	DisplayAmount string          `json:"displayAmount"`
	Kind          CatalogItemKind `json:"kind"`
}
