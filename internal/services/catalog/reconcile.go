package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openkiosk/donation-engine/internal/domain/models"
)

// mergePresets reconciles the local preset list against a remote catalog
// snapshot. It returns the merged list together with a changed flag; when
// changed is false the caller keeps its existing list and skips persistence.
//
// The join key is the numeric amount under exact decimal equality. Both
// sides draw amounts from the same limited vocabulary (whole and one-decimal
// currency units), which is what makes an equality join acceptable; decimal
// comparison also makes "7.5" and "7.50" the same key.
func mergePresets(local []models.PresetDonation, remote []models.CatalogItem) ([]models.PresetDonation, bool) {
	// Remote lookup by canonical amount. Last write wins on duplicate
	// amounts in the snapshot; iterating the map afterwards also prevents a
	// duplicated amount from being synthesized twice.
	lookup := make(map[string]models.CatalogItem, len(remote))
	for _, item := range remote {
		if item.Kind != models.KindDonationAmount {
			continue
		}
		lookup[amountKey(item.Amount)] = item
	}

	changed := false
	matched := make(map[string]bool, len(local))
	merged := make([]models.PresetDonation, 0, len(local)+len(lookup))

	for _, preset := range local {
		amount, ok := preset.AmountDecimal()
		if !ok {
			// A bad amount is this entry's problem alone; keep it, just
			// never report it as synced.
			if preset.IsSynced {
				preset.IsSynced = false
				changed = true
			}
			merged = append(merged, preset)
			continue
		}

		key := amountKey(amount)
		if item, found := lookup[key]; found {
			matched[key] = true
			if preset.RemoteItemID != item.ID || !preset.IsSynced {
				changed = true
			}
			preset.RemoteItemID = item.ID
			preset.IsSynced = true
		} else {
			// Keep the stale remote id: history is not erased, only the
			// synced claim is withdrawn.
			if preset.IsSynced {
				changed = true
			}
			preset.IsSynced = false
		}
		merged = append(merged, preset)
	}

	// Remote amounts with no local counterpart become new local presets.
	for key, item := range lookup {
		if matched[key] {
			continue
		}
		merged = append(merged, models.PresetDonation{
			ID:           uuid.New().String(),
			Amount:       formatAmount(item.Amount),
			RemoteItemID: item.ID,
			IsSynced:     true,
		})
		changed = true
	}

	models.SortPresets(merged)
	return merged, changed
}

// amountKey canonicalizes an amount for joining: trailing zeros stripped so
// 7.5 and 7.50 collide.
func amountKey(d decimal.Decimal) string {
	return formatAmount(d)
}

// formatAmount renders an amount with no trailing decimal when integral.
func formatAmount(d decimal.Decimal) string {
	return d.String()
}
