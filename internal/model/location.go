package model

// Period is one enabled opening window of a centre's day, written as
// "HH:MM" wall-clock strings.  End is exclusive.
type Period struct {
	Start string `json:"start" bson:"start"`
	End   string `json:"end" bson:"end"`
}

// DaySchedule describes whether a weekday is open for assessments and
// which periods are offered on it.  A centre may define several periods
// per day (for example a morning and an afternoon block).
type DaySchedule struct {
	Enabled bool     `json:"enabled" bson:"enabled"`
	Periods []Period `json:"periods" bson:"periods"`
}

// WeekSchedule maps a weekday name ("Monday" … "Sunday") to its schedule.
// Missing days are treated as closed.
type WeekSchedule map[string]DaySchedule

// Location represents a tutoring centre.  It is owned by the centre
// back-office; the scheduling core only reads it.
//
// Fields:
//
//	ID            – document identifier.
//	Name          – display name of the centre.
//	Phone         – contact number offered when a cancellation is refused.
//	Timezone      – IANA zone used for "today" and time-to-session (empty = UTC).
//	Schedule      – weekly recurring assessment availability.
//	BufferMinutes – gap inserted between generated assessment slots.
type Location struct {
	ID            string       `json:"id" bson:"_id"`
	Name          string       `json:"name" bson:"name"`
	Phone         string       `json:"phone,omitempty" bson:"phone,omitempty"`
	Timezone      string       `json:"timezone,omitempty" bson:"timezone,omitempty"`
	Schedule      WeekSchedule `json:"schedule" bson:"schedule"`
	BufferMinutes int          `json:"bufferMinutes" bson:"bufferMinutes"`
}
