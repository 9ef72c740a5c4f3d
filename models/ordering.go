package models

import "time"

// Order is the GORM model for a historical order.
type Order struct {
	ID             int         `gorm:"primaryKey;autoIncrement:false" json:"id"`
	AddressCountry string      `gorm:"type:varchar(128);index" json:"address_country"`
	OrderDate      time.Time   `gorm:"not null;index" json:"order_date"`
	OrderItems     []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is a single order line. It doubles as the record type read from
// the OrderItems.csv setup file, hence the validate tags.
type OrderItem struct {
	ID          int     `gorm:"primaryKey;autoIncrement:false" json:"id" validate:"required,gt=0"`
	OrderID     int     `gorm:"not null;index" json:"order_id" validate:"required,gt=0"`
	ProductID   int     `gorm:"not null;index" json:"product_id" validate:"required,gt=0"`
	UnitPrice   float64 `gorm:"type:numeric(18,2);not null" json:"unit_price" validate:"gte=0,lt=1e16"`
	Units       int     `gorm:"not null" json:"units" validate:"gt=0"`
	ProductName string  `gorm:"type:varchar(255)" json:"product_name" validate:"max=255"`
}

func (OrderItem) TableName() string { return "order_items" }
