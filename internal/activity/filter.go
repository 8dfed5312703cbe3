package activity

import (
	"sort"

	"github.com/maltedev/wishlist-tracker/internal/models"
)

// FilterAll disables a filter dimension, as does an empty value.
const FilterAll = "all"

type Filter struct {
	Type     string
	ListID   string
	Merchant string
}

func (f Filter) Match(e models.ActivityEvent) bool {
	if active(f.Type) && string(e.Type) != f.Type {
		return false
	}
	if active(f.ListID) && (e.ListID == nil || *e.ListID != f.ListID) {
		return false
	}
	if active(f.Merchant) && (e.Merchant == nil || *e.Merchant != f.Merchant) {
		return false
	}
	return true
}

// Apply returns the matching events in their original order.
func (f Filter) Apply(events []models.ActivityEvent) []models.ActivityEvent {
	out := make([]models.ActivityEvent, 0, len(events))
	for _, e := range events {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// MerchantOptions lists the distinct non-empty merchants, collated.
func MerchantOptions(events []models.ActivityEvent) []string {
	seen := make(map[string]struct{})
	merchants := []string{}
	for _, e := range events {
		if e.Merchant == nil || *e.Merchant == "" {
			continue
		}
		if _, ok := seen[*e.Merchant]; ok {
			continue
		}
		seen[*e.Merchant] = struct{}{}
		merchants = append(merchants, *e.Merchant)
	}

	c := newCollator()
	sort.SliceStable(merchants, func(i, j int) bool {
		return c.CompareString(merchants[i], merchants[j]) < 0
	})
	return merchants
}

func active(v string) bool {
	return v != "" && v != FilterAll
}
