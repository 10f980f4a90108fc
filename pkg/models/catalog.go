package models

import (
	"time"

	"gorm.io/gorm"
)

// Vendor is a marketplace seller. Only approved vendors can receive orders.
type Vendor struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name      string         `gorm:"type:varchar(100);not null" json:"name"`
	Email     string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	Approved  bool           `gorm:"not null;default:false" json:"approved"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Vendor) TableName() string {
	return "vendors"
}

// Product is a catalog entry owned by exactly one vendor. Price is the
// current listing price; orders snapshot it into their line items at
// checkout.
type Product struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	VendorID  string         `gorm:"type:varchar(36);not null;index" json:"vendor_id"`
	Name      string         `gorm:"type:varchar(200);not null" json:"name"`
	Price     float64        `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock     int32          `gorm:"not null;default:0" json:"stock"`
	Active    bool           `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Product) TableName() string {
	return "products"
}
