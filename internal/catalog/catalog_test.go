package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
)

func TestComposeUsesServiceDefaults(t *testing.T) {
	t.Parallel()
	svc := model.Service{ID: "svc", Name: "Maths", MaxStudents: 6, AllowedMembershipIDs: []string{"membership_1_session"}}
	v := Compose(model.Session{ID: "s1", ServiceID: "svc", Time: "15:30"}, svc, 5)

	assert.Equal(t, "Maths", v.ServiceName)
	assert.Equal(t, 40, v.Duration)
	assert.Equal(t, "16:10", v.EndTime)
	assert.Equal(t, 6, v.MaxStudents)
	assert.Equal(t, 1, v.SpotsLeft)
	assert.False(t, v.Full)
	assert.True(t, Accepts(v, "membership_1_session"))
	assert.False(t, Accepts(v, "membership_unlimited"))
}

func TestComposeSessionOverrides(t *testing.T) {
	t.Parallel()
	svc := model.Service{MaxStudents: 6, AllowedMembershipIDs: []string{"a"}}
	s := model.Session{Time: "09:00", Duration: 60, MaxStudents: 2, AllowedMembershipIDs: []string{"b"}}
	v := Compose(s, svc, 3)

	assert.Equal(t, 2, v.MaxStudents)
	assert.Equal(t, []string{"b"}, v.AllowedMembershipIDs)
	assert.Equal(t, "10:00", v.EndTime)
	assert.Equal(t, 0, v.SpotsLeft)
	assert.True(t, v.Full)
}

func TestComposeAcceptsAnyWhenEmpty(t *testing.T) {
	t.Parallel()
	v := Compose(model.Session{Time: "09:00"}, model.Service{MaxStudents: 1}, 0)
	assert.Equal(t, []string{}, v.AllowedMembershipIDs)
	assert.True(t, Accepts(v, "anything"))
}

func TestListSortsByTime(t *testing.T) {
	t.Parallel()
	sessions := []model.Session{
		{ID: "late", ServiceID: "svc", Time: "16:00"},
		{ID: "bad", ServiceID: "svc", Time: "soon"},
		{ID: "early", ServiceID: "svc", Time: "09:30"},
		{ID: "mid", ServiceID: "gone", Time: "12:00"},
	}
	services := map[string]model.Service{"svc": {ID: "svc", Name: "English", MaxStudents: 4}}
	got := List(sessions, services, map[string]int{"early": 4})

	var ids []string
	for _, v := range got {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"early", "mid", "late", "bad"}, ids)
	assert.True(t, got[0].Full)
	assert.Equal(t, "", got[1].ServiceName)
}
