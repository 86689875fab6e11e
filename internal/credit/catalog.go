// Package credit holds the membership catalog and the rolling-window
// credit ledger used to decide whether a child may book a session.
package credit

import "sort"

// Category groups plans for display.
type Category string

const (
	CategoryMembership   Category = "membership"
	CategoryOneOnOne     Category = "one_on_one"
	CategoryHolidayCamps Category = "holiday_camps"
)

// Quota is the weekly credit allowance of a plan.  When Unlimited is set,
// Credits is ignored.
type Quota struct {
	Credits   int  `json:"credits"`
	Unlimited bool `json:"unlimited"`
}

// rank orders quotas so that unlimited beats any finite quota.
func (q Quota) rank() int {
	if q.Unlimited {
		return int(^uint(0) >> 1)
	}
	return q.Credits
}

// Plan is one entry of the membership catalog.
type Plan struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Quota       Quota    `json:"quota"`
}

// Catalog maps a membership id to its plan.  It is treated as immutable
// once built.
type Catalog map[string]Plan

// NewCatalog indexes plans by id.
func NewCatalog(plans ...Plan) Catalog {
	c := make(Catalog, len(plans))
	for _, p := range plans {
		c[p.ID] = p
	}
	return c
}

// Quota returns the quota of membershipID.  Unknown ids contribute a zero
// quota.
func (c Catalog) Quota(membershipID string) Quota {
	return c[membershipID].Quota
}

// Plans returns every plan ordered by category then id.
func (c Catalog) Plans() []Plan {
	out := make([]Plan, 0, len(c))
	for _, p := range c {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// DefaultCatalog is the plan table offered by the centres.
func DefaultCatalog() Catalog {
	weekly := func(n int) Quota { return Quota{Credits: n} }
	return NewCatalog(
		Plan{ID: "foundation_phase_1", Name: "Foundation Phase 1", Category: CategoryMembership, Quota: weekly(2),
			Description: "Introductory membership for new students, with a foundational assessment and personalised learning plan."},
		Plan{ID: "foundation_phase_2", Name: "Foundation Phase 2", Category: CategoryMembership, Quota: weekly(2),
			Description: "Builds on Phase 1 with expanded subject coverage."},
		Plan{ID: "foundation_phase_3", Name: "Foundation Phase 3", Category: CategoryMembership, Quota: weekly(2),
			Description: "Advanced foundation program with exam preparation support."},
		Plan{ID: "membership_1_session", Name: "Membership (1 Session)", Category: CategoryMembership, Quota: weekly(1),
			Description: "One tutoring session per week covering core subjects."},
		Plan{ID: "membership_2_sessions", Name: "Membership (2 Sessions)", Category: CategoryMembership, Quota: weekly(2),
			Description: "Two tutoring sessions per week."},
		Plan{ID: "membership_unlimited", Name: "Membership (Unlimited)", Category: CategoryMembership, Quota: Quota{Unlimited: true},
			Description: "Unlimited tutoring sessions across all subjects."},
		Plan{ID: "one_on_one_primary", Name: "One-on-One (Primary)", Category: CategoryOneOnOne, Quota: weekly(1),
			Description: "Dedicated one-on-one tutoring for primary school students (K-6)."},
		Plan{ID: "one_on_one_secondary", Name: "One-on-One (Secondary)", Category: CategoryOneOnOne, Quota: weekly(1),
			Description: "One-on-one tutoring for secondary school students (7-12)."},
		Plan{ID: "camp_coding", Name: "Coding Camp", Category: CategoryHolidayCamps, Quota: weekly(1),
			Description: "Programming fundamentals through hands-on projects."},
		Plan{ID: "camp_public_speaking", Name: "Public Speaking Camp", Category: CategoryHolidayCamps, Quota: weekly(1),
			Description: "Confidence and communication through structured speaking exercises."},
		Plan{ID: "camp_creative_writing", Name: "Creative Writing Camp", Category: CategoryHolidayCamps, Quota: weekly(1),
			Description: "Storytelling, poetry and narrative writing workshops."},
		Plan{ID: "camp_learn_ai", Name: "Learn AI Camp", Category: CategoryHolidayCamps, Quota: weekly(1),
			Description: "Age-appropriate introduction to artificial intelligence."},
		Plan{ID: "camp_speed_typing", Name: "Speed Typing Camp", Category: CategoryHolidayCamps, Quota: weekly(1),
			Description: "Fast and accurate typing through timed challenges."},
	)
}
