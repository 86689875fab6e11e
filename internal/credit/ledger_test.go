package credit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
)

var today = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func daysAgo(n int) string { return model.FormatDate(today.AddDate(0, 0, -n)) }

func sale(id, membership string, children ...string) model.Sale {
	s := model.Sale{ID: id, ParentID: "p1", MembershipID: membership, Status: model.SaleActive, ActivationDate: "2026-01-01"}
	for _, c := range children {
		s.Children = append(s.Children, model.Child{Name: c})
	}
	return s
}

func used(saleID, child, anchor string, n int) model.CreditEntry {
	return model.CreditEntry{SaleID: saleID, ChildKey: model.ChildKey(child), WeekAnchor: anchor, Delta: n, IdempotencyKey: saleID + anchor + child}
}

func TestEvaluateRollingWindow(t *testing.T) {
	t.Parallel()
	l := NewLedger(nil)
	sales := []model.Sale{sale("s1", "membership_2_sessions", "Ava")}

	st := l.Evaluate("Ava", sales, []model.CreditEntry{used("s1", "Ava", daysAgo(3), 2)}, today)
	assert.False(t, st.Allowed)
	assert.Equal(t, 0, st.Remaining)
	assert.Equal(t, ReasonNoCredits, st.Reason)
	assert.Equal(t, "s1", st.SaleID)
	assert.Equal(t, "membership_2_sessions", st.MembershipID)

	st = l.Evaluate("Ava", sales, []model.CreditEntry{used("s1", "Ava", daysAgo(10), 2)}, today)
	assert.True(t, st.Allowed)
	assert.Equal(t, 2, st.Remaining)
	assert.Equal(t, "2026-03-10", st.WeekKey)
}

func TestEvaluateWindowEdges(t *testing.T) {
	t.Parallel()
	l := NewLedger(nil)
	sales := []model.Sale{sale("s1", "membership_2_sessions")}

	st := l.Evaluate("ava", sales, []model.CreditEntry{used("s1", "Ava", daysAgo(6), 1)}, today)
	assert.Equal(t, 1, st.Remaining, "anchor on the window start counts")

	st = l.Evaluate("ava", sales, []model.CreditEntry{used("s1", "Ava", daysAgo(7), 1)}, today)
	assert.Equal(t, 2, st.Remaining, "anchor one day before the window is ignored")
}

func TestEvaluateIgnoresOtherChildrenAndSales(t *testing.T) {
	t.Parallel()
	l := NewLedger(nil)
	sales := []model.Sale{sale("s1", "membership_2_sessions")}
	entries := []model.CreditEntry{
		used("s1", "Ben", daysAgo(1), 2),
		used("s2", "Ava", daysAgo(1), 2),
		used("s1", "AVA ", daysAgo(1), 1),
	}
	st := l.Evaluate("Ava", sales, entries, today)
	assert.True(t, st.Allowed)
	assert.Equal(t, 1, st.Remaining)
}

func TestEvaluateUnlimited(t *testing.T) {
	t.Parallel()
	l := NewLedger(nil)
	sales := []model.Sale{sale("s1", "membership_unlimited", "Ava")}
	entries := []model.CreditEntry{used("s1", "Ava", daysAgo(0), 50)}

	st := l.Evaluate("Ava", sales, entries, today)
	assert.True(t, st.Allowed)
	assert.True(t, st.Unlimited)
	assert.Empty(t, st.WeekKey)

	raw, err := json.Marshal(st)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"remaining":"unlimited"`)
}

func TestEvaluateNoMembership(t *testing.T) {
	t.Parallel()
	l := NewLedger(nil)
	cancelled := sale("s1", "membership_unlimited")
	cancelled.Status = model.SaleCancelled
	inactive := sale("s2", "membership_unlimited")
	inactive.ActivationDate = ""
	other := sale("s3", "membership_unlimited", "Ben")

	st := l.Evaluate("Ava", []model.Sale{cancelled, inactive, other}, nil, today)
	assert.False(t, st.Allowed)
	assert.False(t, st.HasMembership())
	assert.Equal(t, ReasonNoMembership, st.Reason)
}

func TestSelectHighestQuota(t *testing.T) {
	t.Parallel()
	l := NewLedger(nil)
	sales := []model.Sale{
		sale("one", "membership_1_session"),
		sale("unknown", "retired_plan"),
		sale("two-a", "membership_2_sessions"),
		sale("two-b", "foundation_phase_1"),
	}
	got, ok := l.Select("ava", sales)
	require.True(t, ok)
	assert.Equal(t, "two-a", got.ID, "first-seen maximum wins")

	got, ok = l.Select("ava", append(sales, sale("unl", "membership_unlimited")))
	require.True(t, ok)
	assert.Equal(t, "unl", got.ID)
}

func TestUnknownMembershipHasNoCredit(t *testing.T) {
	t.Parallel()
	l := NewLedger(nil)
	st := l.Evaluate("Ava", []model.Sale{sale("s1", "retired_plan")}, nil, today)
	assert.False(t, st.Allowed)
	assert.Equal(t, ReasonNoCredits, st.Reason)
	assert.Equal(t, "s1", st.SaleID)
}

func TestDefaultCatalog(t *testing.T) {
	t.Parallel()
	c := DefaultCatalog()
	assert.Len(t, c, 13)
	assert.True(t, c.Quota("membership_unlimited").Unlimited)
	assert.Equal(t, 2, c.Quota("foundation_phase_3").Credits)
	assert.Equal(t, 1, c.Quota("camp_coding").Credits)
	assert.Equal(t, Quota{}, c.Quota("nope"))

	plans := c.Plans()
	assert.Equal(t, CategoryHolidayCamps, plans[0].Category)
	assert.Equal(t, CategoryOneOnOne, plans[len(plans)-1].Category)
}

func TestFromLegacyUsage(t *testing.T) {
	t.Parallel()
	entries := FromLegacyUsage("s1", LegacyUsage{
		"2026-03-08": {"Ava": 1, "ava": 1, "Ben": 0},
		"week-10":    {"Ava": 3},
	})
	require.Len(t, entries, 1)
	assert.Equal(t, "ava", entries[0].ChildKey)
	assert.Equal(t, 2, entries[0].Delta)
	assert.Equal(t, "legacy:s1:2026-03-08:ava", entries[0].IdempotencyKey)

	l := NewLedger(nil)
	st := l.Evaluate("Ava", []model.Sale{sale("s1", "membership_2_sessions")}, entries, today)
	assert.False(t, st.Allowed)
}
