package activity

import (
	"errors"
	"sort"
	"time"

	"github.com/maltedev/wishlist-tracker/internal/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	LabelToday           = "Today"
	LabelYesterday       = "Yesterday"
	LabelEarlier         = "Earlier"
	UnknownMerchantLabel = "Unknown merchant"
)

type GroupBy string

const (
	GroupByDayKey        GroupBy = "day"
	GroupByMerchantKey   GroupBy = "merchant"
	GroupByCollectionKey GroupBy = "collection"
)

var ErrUnknownGrouping = errors.New("unknown grouping")

// Group is a labelled run of events. Events keep the order they had in the
// input slice.
type Group struct {
	Label  string                 `json:"label"`
	Events []models.ActivityEvent `json:"events"`
}

// ParseGroupBy maps a request value to a grouping. Empty means day.
func ParseGroupBy(s string) (GroupBy, error) {
	switch GroupBy(s) {
	case "", GroupByDayKey:
		return GroupByDayKey, nil
	case GroupByMerchantKey, GroupByCollectionKey:
		return GroupBy(s), nil
	default:
		return "", ErrUnknownGrouping
	}
}

// GroupEvents dispatches to the grouping named by by.
func GroupEvents(events []models.ActivityEvent, by GroupBy, now time.Time) ([]Group, error) {
	switch by {
	case "", GroupByDayKey:
		return GroupByDay(events, now), nil
	case GroupByMerchantKey:
		return GroupByMerchant(events), nil
	case GroupByCollectionKey:
		return GroupByCollection(events), nil
	default:
		return nil, ErrUnknownGrouping
	}
}

// GroupByDay buckets events into Today, Yesterday and Earlier using UTC
// calendar days relative to now. Empty buckets are omitted. Events dated
// after today land in Earlier.
func GroupByDay(events []models.ActivityEvent, now time.Time) []Group {
	todayStart := startOfUTCDay(now)
	yesterdayStart := todayStart.AddDate(0, 0, -1)

	buckets := []Group{
		{Label: LabelToday},
		{Label: LabelYesterday},
		{Label: LabelEarlier},
	}

	for _, event := range events {
		switch day := startOfUTCDay(event.CheckedAt); {
		case day.Equal(todayStart):
			buckets[0].Events = append(buckets[0].Events, event)
		case day.Equal(yesterdayStart):
			buckets[1].Events = append(buckets[1].Events, event)
		default:
			buckets[2].Events = append(buckets[2].Events, event)
		}
	}

	groups := make([]Group, 0, len(buckets))
	for _, b := range buckets {
		if len(b.Events) > 0 {
			groups = append(groups, b)
		}
	}
	return groups
}

// GroupByMerchant groups by merchant name, collecting events without one
// under "Unknown merchant".
func GroupByMerchant(events []models.ActivityEvent) []Group {
	return groupByLabel(events, func(e models.ActivityEvent) string {
		if e.Merchant == nil || *e.Merchant == "" {
			return UnknownMerchantLabel
		}
		return *e.Merchant
	})
}

// GroupByCollection groups by list name with an "Unassigned" fallback.
func GroupByCollection(events []models.ActivityEvent) []Group {
	return groupByLabel(events, func(e models.ActivityEvent) string {
		if e.ListName == "" {
			return UnassignedList
		}
		return e.ListName
	})
}

func groupByLabel(events []models.ActivityEvent, label func(models.ActivityEvent) string) []Group {
	index := make(map[string]int)
	groups := []Group{}

	for _, event := range events {
		l := label(event)
		if i, ok := index[l]; ok {
			groups[i].Events = append(groups[i].Events, event)
			continue
		}
		index[l] = len(groups)
		groups = append(groups, Group{Label: l, Events: []models.ActivityEvent{event}})
	}

	c := newCollator()
	sort.SliceStable(groups, func(i, j int) bool {
		return c.CompareString(groups[i].Label, groups[j].Label) < 0
	})
	return groups
}

func startOfUTCDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// A Collator is not safe for concurrent use.
func newCollator() *collate.Collator {
	return collate.New(language.English)
}
