// Package domain holds the entities shared across the asset-tracking stores.
// Field names and JSON tags mirror the wire format of the tracking API; the
// stores never invent server-computed values (accessory numbers, stock
// aggregates) locally.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups accessory types (e.g. "Laptop"). InStockCount is a
// denormalized aggregate maintained server-side; clients never compute it.
type Category struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Code         string    `json:"code,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	InStockCount int       `json:"in_stock_count"`
}

// AccessoryStatus is the lifecycle state of a physical item.
type AccessoryStatus string

const (
	AccessoryAvailable   AccessoryStatus = "available"
	AccessoryInUse       AccessoryStatus = "in_use"
	AccessoryDamaged     AccessoryStatus = "damaged"
	AccessoryUnderRepair AccessoryStatus = "under_repair"
)

// Valid reports whether s is one of the enumerated accessory states.
func (s AccessoryStatus) Valid() bool {
	switch s {
	case AccessoryAvailable, AccessoryInUse, AccessoryDamaged, AccessoryUnderRepair:
		return true
	}
	return false
}

// Accessory is a physical item belonging to exactly one category.
//
// Invariant: CategoryID references an existing Category, and an accessory is
// only ever visible through the inventory cache when that cache's active
// scope equals CategoryID.
type Accessory struct {
	ID             int64           `json:"id"`
	AccessoryNo    string          `json:"accessory_no"`
	BrandName      string          `json:"brand_name"`
	CategoryID     int64           `json:"category_id"`
	VendorName     string          `json:"vendor_name"`
	Condition      string          `json:"condition"`
	PurchaseDate   string          `json:"purchase_date"`
	Amount         decimal.Decimal `json:"amount"`
	WarrantyMonths int             `json:"warranty_months"`
	StockQuantity  int             `json:"stock_quantity"`
	Status         AccessoryStatus `json:"status"`
	Note           string          `json:"note,omitempty"`
	Images         []string        `json:"images,omitempty"`
}

// Employee is an external read-mostly entity owned by the employee directory.
type Employee struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	TeamID      int64  `json:"team_id"`
	RoleID      int64  `json:"role_id"`
	ContactInfo string `json:"contact_info,omitempty"`
	ProfilePic  string `json:"profile_pic,omitempty"`
}

// AssignmentStatus is the lifecycle state of an assignment record. There is
// no enforced transition table: any enumerated value is accepted at any time.
type AssignmentStatus string

const (
	AssignmentAssigned AssignmentStatus = "assigned"
	AssignmentVacant   AssignmentStatus = "vacant"
	AssignmentInRepair AssignmentStatus = "in-repair"
	AssignmentLost     AssignmentStatus = "lost"
)

// Valid reports whether s is one of the enumerated assignment states.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentAssigned, AssignmentVacant, AssignmentInRepair, AssignmentLost:
		return true
	}
	return false
}

// EmployeeRef is the read-only employee view embedded in assignment listings.
type EmployeeRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AccessoryRef is the read-only accessory view embedded in assignment listings.
type AccessoryRef struct {
	ID          int64  `json:"id"`
	AccessoryNo string `json:"accessory_no"`
	BrandName   string `json:"brand_name"`
}

// Assignment links one accessory to one employee. It holds only references
// (ids) plus the server-rendered display views; the ledger never mutates the
// referenced accessory or employee through these.
type Assignment struct {
	ID          int64            `json:"id"`
	UserID      int64            `json:"user_id"`
	CategoryID  int64            `json:"category_id"`
	AccessoryID int64            `json:"accessory_id"`
	AssignedAt  string           `json:"assigned_at"`
	Status      AssignmentStatus `json:"status"`

	User      *EmployeeRef  `json:"user,omitempty"`
	Accessory *AccessoryRef `json:"accessory,omitempty"`
}
