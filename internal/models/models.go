package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Product is a catalog entry. The catalog is owned by an upstream system;
// this service only reads it.
type Product struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	ProductID   string         `gorm:"not null;uniqueIndex" json:"product_id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	Category    string         `gorm:"not null;index" json:"category"`
	Price       float64        `gorm:"not null" json:"price"`
	Unit        string         `json:"unit"`
	Stock       int            `gorm:"not null;default:0" json:"stock"`
}

// InStock reports whether any stock remains.
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// Customer maps a customer identifier (mobile number) to a postcode.
type Customer struct {
	CustomerID string    `gorm:"primaryKey" json:"customer_id"`
	Postcode   string    `gorm:"not null" json:"postcode"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// OrderStatus is the order lifecycle state
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderConfirmed  OrderStatus = "CONFIRMED"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// statusChain is the forward progression of an order. CANCELLED is
// reachable from any non-terminal state and is terminal itself.
var statusChain = map[OrderStatus]OrderStatus{
	OrderPending:    OrderConfirmed,
	OrderConfirmed:  OrderProcessing,
	OrderProcessing: OrderShipped,
	OrderShipped:    OrderDelivered,
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// CanTransitionTo reports whether the move from s to next is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.Valid() || !next.Valid() || s.Terminal() {
		return false
	}
	if next == OrderCancelled {
		return true
	}
	return statusChain[s] == next
}

// Order is a confirmed customer order. Created exactly once on
// confirmation; the total must equal the sum of item subtotals.
type Order struct {
	OrderID     string      `gorm:"primaryKey" json:"order_id"`
	CustomerID  string      `gorm:"not null;index" json:"customer_id"`
	Status      OrderStatus `gorm:"not null" json:"order_status"`
	TotalAmount float64     `gorm:"not null" json:"total_amount"`
	Indexed     bool        `gorm:"not null;default:false" json:"-"`
	Items       []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// OrderItem is a single line of an order.
type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   string    `gorm:"not null;index" json:"order_id"`
	ProductID string    `gorm:"not null" json:"product_id"`
	Name      string    `gorm:"not null" json:"name"`
	Category  string    `json:"category"`
	Unit      string    `json:"unit"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	UnitPrice float64   `gorm:"not null" json:"unit_price"`
	Subtotal  float64   `gorm:"not null" json:"subtotal"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// SlotStatus is the availability state of a delivery slot
type SlotStatus string

const (
	SlotAvailable   SlotStatus = "available"
	SlotFullyBooked SlotStatus = "fully_booked"
	SlotBlocked     SlotStatus = "blocked"
)

// DeliverySlot is a bookable delivery window. Read-only here; slot
// lifecycle is owned by the warehouse system.
type DeliverySlot struct {
	SlotID           string     `gorm:"primaryKey" json:"slot_id"`
	SlotDate         string     `gorm:"not null;index" json:"slot_date"`
	StartTime        string     `gorm:"not null" json:"start_time"`
	EndTime          string     `gorm:"not null" json:"end_time"`
	Capacity         int        `gorm:"not null;default:0" json:"slot_capacity"`
	PostcodeCoverage string     `gorm:"not null" json:"postcode_coverage"`
	Status           SlotStatus `gorm:"column:slot_status;not null" json:"slot_status"`
	IsActive         bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// CoversPostcode reports whether the slot's coverage list contains the
// given postcode. Coverage is stored as a comma-separated list.
func (s *DeliverySlot) CoversPostcode(postcode string) bool {
	for _, pc := range strings.Split(s.PostcodeCoverage, ",") {
		if strings.TrimSpace(pc) == postcode {
			return true
		}
	}
	return false
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Product{},
		&Customer{},
		&Order{},
		&OrderItem{},
		&DeliverySlot{},
	)

	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
