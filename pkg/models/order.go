package models

import (
	"fmt"
	"time"
)

// Status is the closed set of order lifecycle states. Orders always move
// forward through the normal progression; cancelled is reachable from any
// non-terminal state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// transitions maps each status to the set of statuses it may move to.
// Terminal statuses have no entries.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// ParseStatus validates a raw status value against the closed set.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if _, ok := transitions[s]; !ok {
		return "", fmt.Errorf("unknown order status %q", raw)
	}
	return s, nil
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether moving from s to next is permitted by the
// lifecycle graph. Re-requesting the current status is not a permitted
// transition.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Role identifies the kind of actor calling into the order subsystem.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

func ParseRole(raw string) (Role, error) {
	switch r := Role(raw); r {
	case RoleCustomer, RoleVendor, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Actor is an authenticated identity acting on orders.
type Actor struct {
	ID   string
	Role Role
}

// OrderItem is one purchased line. UnitPrice is the catalog price captured
// at checkout; Total must equal UnitPrice * Quantity.
type OrderItem struct {
	ProductID   string  `bson:"product_id" json:"product_id"`
	ProductName string  `bson:"product_name" json:"product_name"`
	UnitPrice   float64 `bson:"unit_price" json:"unit_price"`
	Quantity    int32   `bson:"quantity" json:"quantity"`
	Total       float64 `bson:"total" json:"total"`
}

// Address is the delivery address captured at order time. It is a
// point-in-time snapshot and never updated after creation.
type Address struct {
	Street     string `bson:"street" json:"street"`
	City       string `bson:"city" json:"city"`
	State      string `bson:"state" json:"state"`
	PostalCode string `bson:"postal_code" json:"postal_code"`
	Country    string `bson:"country" json:"country"`
}

// CustomerSnapshot is the customer's contact data captured at order time,
// kept for display stability even if the account changes later.
type CustomerSnapshot struct {
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
	Phone string `bson:"phone" json:"phone"`
}

// Order is one purchase transaction. All items in an order belong to a
// single vendor; VendorID records that ownership and drives vendor-scoped
// visibility. Orders are never deleted, cancellation is a status.
type Order struct {
	ID            string           `bson:"_id" json:"id"`
	OrderNumber   string           `bson:"order_number" json:"order_number"`
	CustomerID    string           `bson:"customer_id" json:"customer_id"`
	VendorID      string           `bson:"vendor_id" json:"vendor_id"`
	Items         []OrderItem      `bson:"items" json:"items"`
	Subtotal      float64          `bson:"subtotal" json:"subtotal"`
	Shipping      float64          `bson:"shipping" json:"shipping"`
	Discount      float64          `bson:"discount" json:"discount"`
	Total         float64          `bson:"total" json:"total"`
	Address       Address          `bson:"address" json:"address"`
	Customer      CustomerSnapshot `bson:"customer" json:"customer"`
	PaymentMethod string           `bson:"payment_method" json:"payment_method"`
	PaymentStatus string           `bson:"payment_status" json:"payment_status"`
	Status        Status           `bson:"status" json:"status"`
	CreatedAt     time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `bson:"updated_at" json:"updated_at"`
}

// OwnedByVendor reports whether vendorID is the vendor this order is scoped
// to.
func (o *Order) OwnedByVendor(vendorID string) bool {
	return o.VendorID == vendorID
}

// OwnedByCustomer reports whether customerID placed this order.
func (o *Order) OwnedByCustomer(customerID string) bool {
	return o.CustomerID == customerID
}
