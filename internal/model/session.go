package model

import "time"

// DefaultSessionMinutes is used whenever a session or booking carries no
// explicit duration.
const DefaultSessionMinutes = 40

// Service is the staff-defined service a session is scheduled under.  It
// supplies the roster capacity and the membership plans accepted.
type Service struct {
	ID                   string   `json:"id" bson:"_id"`
	LocationID           string   `json:"locationId" bson:"locationId"`
	Name                 string   `json:"name" bson:"name"`
	MaxStudents          int      `json:"maxStudents" bson:"maxStudents"`
	AllowedMembershipIDs []string `json:"allowedMembershipIds,omitempty" bson:"allowedMembershipIds,omitempty"`
}

// Session is an externally scheduled tutoring block.  The core only mutates
// its roster.  MaxStudents and AllowedMembershipIDs are optional overrides
// of the linked service definition.
type Session struct {
	ID                   string   `json:"id" bson:"_id"`
	LocationID           string   `json:"locationId" bson:"locationId"`
	ServiceID            string   `json:"serviceId" bson:"serviceId"`
	Date                 string   `json:"date" bson:"date"` // YYYY-MM-DD
	Time                 string   `json:"time" bson:"time"` // HH:MM
	Duration             int      `json:"duration" bson:"duration"`
	TutorName            string   `json:"tutorName" bson:"tutorName"`
	MaxStudents          int      `json:"maxStudents,omitempty" bson:"maxStudents,omitempty"`
	AllowedMembershipIDs []string `json:"allowedMembershipIds,omitempty" bson:"allowedMembershipIds,omitempty"`
}

// RosterEntry enrols one child into a session.  ChildKey is the
// normalised child name; (SessionID, ParentID, ChildKey) is unique.
// CommitKey ties the entry to the booking attempt that created it.
type RosterEntry struct {
	ID        string    `json:"id" bson:"_id"`
	SessionID string    `json:"sessionId" bson:"sessionId"`
	ChildKey  string    `json:"childKey" bson:"childKey"`
	ChildName string    `json:"childName" bson:"childName"`
	Grade     string    `json:"grade,omitempty" bson:"grade,omitempty"`
	ParentID  string    `json:"parentId" bson:"parentId"`
	CommitKey string    `json:"commitKey" bson:"commitKey"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// SessionView is a session joined with its service definition and live
// roster size, as presented to parents.
type SessionView struct {
	Session
	ServiceName          string   `json:"serviceName"`
	EndTime              string   `json:"endTime"`
	StudentCount         int      `json:"studentCount"`
	MaxStudents          int      `json:"maxStudents"`
	AllowedMembershipIDs []string `json:"allowedMembershipIds"`
	SpotsLeft            int      `json:"spotsLeft"`
	Full                 bool     `json:"full"`
}
