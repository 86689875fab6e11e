package credit

import (
	"encoding/json"
	"time"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
)

// WindowDays is the length of the rolling credit window, today included.
const WindowDays = 7

// Rejection reasons reported by Evaluate.
const (
	ReasonNoMembership = "no active membership for this child"
	ReasonNoCredits    = "no credits left this week"
)

// Status is the outcome of a credit evaluation.  SaleID and MembershipID
// are set whenever a membership matched, even when Allowed is false.
type Status struct {
	Allowed      bool   `json:"allowed"`
	Remaining    int    `json:"-"`
	Unlimited    bool   `json:"unlimited"`
	Reason       string `json:"reason,omitempty"`
	SaleID       string `json:"saleId,omitempty"`
	MembershipID string `json:"membershipId,omitempty"`
	WeekKey      string `json:"weekKey,omitempty"`
}

// MarshalJSON renders Remaining as the string "unlimited" for unlimited
// plans.
func (s Status) MarshalJSON() ([]byte, error) {
	type alias Status
	var remaining any = s.Remaining
	if s.Unlimited {
		remaining = "unlimited"
	}
	return json.Marshal(struct {
		alias
		Remaining any `json:"remaining"`
	}{alias(s), remaining})
}

// HasMembership reports whether any membership applied to the child.
func (s Status) HasMembership() bool { return s.SaleID != "" }

// Ledger evaluates credit balances against a catalog.
type Ledger struct {
	catalog Catalog
}

// NewLedger returns a ledger backed by catalog.  A nil catalog falls back
// to DefaultCatalog.
func NewLedger(catalog Catalog) *Ledger {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Ledger{catalog: catalog}
}

// Catalog returns the catalog the ledger was built with.
func (l *Ledger) Catalog() Catalog { return l.catalog }

// WindowStart returns the first day of the rolling window ending today.
func WindowStart(today time.Time) time.Time {
	return today.AddDate(0, 0, -(WindowDays - 1))
}

// Applies reports whether sale can be used for the child with key
// childKey: it is not cancelled, has been activated and either covers all
// children or names this one.
func Applies(sale model.Sale, childKey string) bool {
	if sale.Status == model.SaleCancelled || sale.ActivationDate == "" {
		return false
	}
	if len(sale.Children) == 0 {
		return true
	}
	for _, c := range sale.Children {
		if model.ChildKey(c.Name) == childKey {
			return true
		}
	}
	return false
}

// Select returns the applicable sale with the highest weekly quota.  Ties
// go to the first one in sales order.
func (l *Ledger) Select(childKey string, sales []model.Sale) (model.Sale, bool) {
	var (
		best  model.Sale
		found bool
		rank  int
	)
	for _, s := range sales {
		if !Applies(s, childKey) {
			continue
		}
		r := l.catalog.Quota(s.MembershipID).rank()
		if !found || r > rank {
			best, rank, found = s, r, true
		}
	}
	return best, found
}

// Used folds the ledger entries of sale and child whose week anchor falls
// on or after the window start.  Entries with unparseable anchors are
// ignored.
func Used(entries []model.CreditEntry, saleID, childKey string, today time.Time) int {
	start := WindowStart(today)
	used := 0
	for _, e := range entries {
		if e.SaleID != saleID || e.ChildKey != childKey {
			continue
		}
		anchor, err := model.ParseDate(e.WeekAnchor)
		if err != nil || anchor.Before(start) {
			continue
		}
		used += e.Delta
	}
	return used
}

// Evaluate decides whether child may spend a credit today.  sales are the
// parent's memberships, entries the ledger lines of those sales.  today is
// the calendar day as returned by model.Today.
func (l *Ledger) Evaluate(child string, sales []model.Sale, entries []model.CreditEntry, today time.Time) Status {
	key := model.ChildKey(child)
	sale, ok := l.Select(key, sales)
	if !ok {
		return Status{Reason: ReasonNoMembership}
	}
	st := Status{SaleID: sale.ID, MembershipID: sale.MembershipID}
	quota := l.catalog.Quota(sale.MembershipID)
	if quota.Unlimited {
		st.Allowed, st.Unlimited = true, true
		return st
	}
	st.Remaining = quota.Credits - Used(entries, sale.ID, key, today)
	if st.Remaining <= 0 {
		st.Remaining = max(st.Remaining, 0)
		st.Reason = ReasonNoCredits
		return st
	}
	st.Allowed = true
	st.WeekKey = model.FormatDate(today)
	return st
}
