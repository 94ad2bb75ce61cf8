package model

import (
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID           uuid.UUID
	Email        string
	MobileNumber string
	Password     string
	Name         string
	Address      string
	City         string
	ImageURL     string
	Groups       []string
	CreatedAt    time.Time
}

func (u *User) InGroup(name string) bool {
	for _, g := range u.Groups {
		if g == name {
			return true
		}
	}
	return false
}

// Well-known groups, seeded by the initial migration.
const (
	GroupAdmin           = "admin"
	GroupUser            = "user"
	GroupDeliveryPartner = "delivery_partner"
)

type Item struct {
	ID              uuid.UUID
	Name            string
	Description     string
	MRPPrice        decimal.Decimal
	SellingPrice    decimal.Decimal
	OfferPercentage int
	Ratings         int
	Category        string
	Available       bool
	ImageURL        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type CartItem struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	ItemID     uuid.UUID
	Quantity   int
	TotalPrice decimal.Decimal

	// Joined item fields for listings.
	ItemName     string
	ItemPrice    decimal.Decimal
	ItemImageURL string
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCanceled  OrderStatus = "Canceled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusCanceled:
		return true
	}
	return false
}

var ErrInvalidStatus = errors.New("invalid order status")

type Order struct {
	ID               uuid.UUID
	UserID           *uuid.UUID
	UniqueID         string
	TotalPrice       decimal.Decimal
	Status           OrderStatus
	OrderAt          time.Time
	ShippingTime     *time.Time
	DeliveryTime     *time.Time
	DeliveryPersonID *uuid.UUID
	Purchases        []Purchase

	User           *User
	DeliveryPerson *User
}

// ApplyStatus sets the order status and stamps shipping_time / delivery_time the
// first time the corresponding status is reached. Re-entering a status never
// overwrites an existing timestamp. Any status outside the enumeration is
// rejected and the order is left unchanged.
func (o *Order) ApplyStatus(status OrderStatus, now time.Time) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	o.Status = status
	switch status {
	case OrderStatusShipped:
		if o.ShippingTime == nil {
			o.ShippingTime = &now
		}
	case OrderStatusDelivered:
		if o.DeliveryTime == nil {
			o.DeliveryTime = &now
		}
	}
	return nil
}

type Purchase struct {
	ID          uuid.UUID
	UserID      *uuid.UUID
	ItemID      uuid.UUID
	OrderID     uuid.UUID
	Quantity    int
	TotalPrice  decimal.Decimal
	PurchasedAt time.Time

	ItemName     string
	ItemCategory string
	ItemRatings  int
	ItemImageURL string
}

// LineTotal is the authoritative price calculation for cart entries and
// purchases: quantity times the item's current selling price.
func LineTotal(quantity int, sellingPrice decimal.Decimal) decimal.Decimal {
	return sellingPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// CartPick selects one cart entry for purchase. The quantity is the
// caller-supplied purchase quantity, which overrides whatever quantity the cart
// entry stored.
type CartPick struct {
	CartItemID uuid.UUID
	Quantity   int
}

const orderCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// OrderCodeLength is the fixed length of the human-facing order code.
const OrderCodeLength = 5

// NewOrderCode returns a random 5-character uppercase alphanumeric code.
// Uniqueness is the order repository's job: it pre-checks existing codes and
// retries, with the unique index on orders.unique_id as the final backstop.
func NewOrderCode() string {
	b := make([]byte, OrderCodeLength)
	for i := range b {
		b[i] = orderCodeAlphabet[rand.Intn(len(orderCodeAlphabet))]
	}
	return string(b)
}

type OrderEventType string

const (
	OrderEventPlaced        OrderEventType = "order_placed"
	OrderEventStatusChanged OrderEventType = "status_changed"
)

// OrderEvent is the message published on the order lifecycle queue and the row
// the worker records in the audit table.
type OrderEvent struct {
	ID        uuid.UUID      `json:"id"`
	OrderID   uuid.UUID      `json:"order_id"`
	UniqueID  string         `json:"unique_id"`
	Type      OrderEventType `json:"type"`
	Status    OrderStatus    `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}
