package models

import (
	"sort"

	"github.com/shopspring/decimal"
)

// PresetDonation is a donor-facing suggested amount configured on the kiosk.
// The ID is assigned once locally and never reused. RemoteItemID links the
// preset to a catalog item; IsSynced is true only while that link matches
// the amount as last confirmed against the remote catalog.
type PresetDonation struct {
	ID           string `json:"id"`
	Amount       string `json:"amount"` // decimal string, e.g. "10" or "7.50"
	RemoteItemID string `json:"remote_item_id,omitempty"`
	IsSynced     bool   `json:"is_synced"`
}

// AmountDecimal parses the preset amount. An unparseable amount is a local
// data error, never a crash; callers get ok=false and decide how to degrade.
func (p PresetDonation) AmountDecimal() (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// SortPresets orders presets ascending by numeric amount. Entries with an
// unparseable amount sort last and never block the comparison: an invalid
// entry is treated as not-less-than any valid one.
func SortPresets(presets []PresetDonation) {
	sort.SliceStable(presets, func(i, j int) bool {
		a, aok := presets[i].AmountDecimal()
		b, bok := presets[j].AmountDecimal()
		if !aok {
			return false
		}
		if !bok {
			return true
		}
		return a.LessThan(b)
	})
}
