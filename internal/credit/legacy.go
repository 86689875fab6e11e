package credit

import (
	"fmt"
	"sort"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
)

// LegacyUsage is the nested counter older sale documents carry:
// week anchor (YYYY-MM-DD) -> child name -> credits consumed.
type LegacyUsage map[string]map[string]int

// FromLegacyUsage converts a legacy counter into ledger entries.  Each
// produced entry has a deterministic idempotency key so repeated imports
// of the same document do not add usage twice.  Buckets whose key is not a
// date and non-positive counts are skipped.  Names differing only in case
// are merged.
func FromLegacyUsage(saleID string, usage LegacyUsage) []model.CreditEntry {
	weeks := make([]string, 0, len(usage))
	for w := range usage {
		weeks = append(weeks, w)
	}
	sort.Strings(weeks)

	var out []model.CreditEntry
	for _, week := range weeks {
		if _, err := model.ParseDate(week); err != nil {
			continue
		}
		byChild := map[string]int{}
		for name, n := range usage[week] {
			if n > 0 {
				byChild[model.ChildKey(name)] += n
			}
		}
		keys := make([]string, 0, len(byChild))
		for k := range byChild {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			id := fmt.Sprintf("legacy:%s:%s:%s", saleID, week, key)
			out = append(out, model.CreditEntry{
				ID:             id,
				SaleID:         saleID,
				ChildKey:       key,
				WeekAnchor:     week,
				Delta:          byChild[key],
				IdempotencyKey: id,
			})
		}
	}
	return out
}
