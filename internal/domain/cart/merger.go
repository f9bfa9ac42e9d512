package cart

import "time"

// MergeStats reports what a merge did
type MergeStats struct {
	Summed   int
	Appended int
}

// GuestCartMerger folds a client-held guest cart into the server cart at sign-in.
// Lines match on product, branch and variant set; matching quantities are summed.
// Merging is additive and not idempotent: callers merge once and then clear the guest source.
type GuestCartMerger struct{}

// Merge mutates and returns serverCart
func (GuestCartMerger) Merge(guestItems []CartItem, serverCart *Cart) (*Cart, MergeStats) {
	var stats MergeStats
	now := time.Now()

	for _, g := range guestItems {
		if g.Quantity < 1 {
			continue
		}
		key := g.MatchKey()

		matched := false
		for idx := range serverCart.Items {
			s := &serverCart.Items[idx]
			if s.MatchKey() != key {
				continue
			}
			s.Quantity += g.Quantity
			s.UpdatedAt = now
			stats.Summed++
			matched = true
			break
		}
		if matched {
			continue
		}

		item := g
		item.ID = newItemID()
		item.CartID = serverCart.ID
		item.VariantSelection = g.VariantSelection.Clone()
		item.CreatedAt = now
		item.UpdatedAt = now
		serverCart.Items = append(serverCart.Items, item)
		stats.Appended++
	}

	if stats.Summed+stats.Appended > 0 {
		serverCart.touch(now)
	}
	return serverCart, stats
}
