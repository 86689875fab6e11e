package model

import "time"

// SaleStatus is the lifecycle state of a purchased membership.
type SaleStatus string

const (
	SaleActive    SaleStatus = "active"
	SalePending   SaleStatus = "pending"
	SaleCancelled SaleStatus = "cancelled"
)

// Child identifies a child of a parent.  Children are referenced by name
// throughout the system; matching is case-insensitive.
type Child struct {
	Name  string `json:"name" bson:"name" validate:"required,max=120"`
	Grade string `json:"grade,omitempty" bson:"grade,omitempty" validate:"max=40"`
}

// Sale is a purchased membership.  An empty Children list means the
// membership applies to every child of the parent.  Sales are never
// deleted, only moved to cancelled.
type Sale struct {
	ID             string     `json:"id" bson:"_id"`
	LocationID     string     `json:"locationId" bson:"locationId"`
	ParentID       string     `json:"parentId" bson:"parentId"`
	Children       []Child    `json:"children" bson:"children"`
	MembershipID   string     `json:"membershipId" bson:"membershipId"`
	Status         SaleStatus `json:"status" bson:"status"`
	ActivationDate string     `json:"activationDate,omitempty" bson:"activationDate,omitempty"` // YYYY-MM-DD
	CreatedAt      time.Time  `json:"createdAt" bson:"createdAt"`
}

// CreditEntry is one line of the append-only credit ledger.  Balance is a
// fold over the entries whose WeekAnchor falls inside the rolling window.
// IdempotencyKey is unique; a second append with the same key is rejected.
type CreditEntry struct {
	ID             string    `json:"id" bson:"_id"`
	SaleID         string    `json:"saleId" bson:"saleId"`
	ChildKey       string    `json:"childKey" bson:"childKey"`
	WeekAnchor     string    `json:"weekAnchor" bson:"weekAnchor"` // YYYY-MM-DD
	Delta          int       `json:"delta" bson:"delta"`
	IdempotencyKey string    `json:"idempotencyKey" bson:"idempotencyKey"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
}
