package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freshkart/api/internal/model"
)

// --- Auth ---

type RegisterRequest struct {
	Email        string `json:"email" binding:"required,email"`
	MobileNumber string `json:"mobile_number" binding:"required,min=7,max=15"`
	Password     string `json:"password" binding:"required,min=8"`
	Name         string `json:"name"`
}

type LoginRequest struct {
	MobileNumber string `json:"mobile_number" binding:"required"`
	Password     string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	MobileNumber string    `json:"mobile_number"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	ImageURL     string    `json:"image,omitempty"`
	Groups       []string  `json:"groups"`
}

// --- Catalog ---

type CreateItemRequest struct {
	Name            string          `json:"name" binding:"required"`
	Description     string          `json:"description"`
	MRPPrice        decimal.Decimal `json:"mrp_price"`
	SellingPrice    decimal.Decimal `json:"selling_price" binding:"required"`
	OfferPercentage int             `json:"offer_percentage" binding:"min=0,max=100"`
	Ratings         int             `json:"ratings" binding:"min=0"`
	Category        string          `json:"category"`
	Available       *bool           `json:"available"`
	ImageURL        string          `json:"image"`
}

type UpdateItemRequest struct {
	Name            *string          `json:"name"`
	Description     *string          `json:"description"`
	MRPPrice        *decimal.Decimal `json:"mrp_price"`
	SellingPrice    *decimal.Decimal `json:"selling_price"`
	OfferPercentage *int             `json:"offer_percentage" binding:"omitempty,min=0,max=100"`
	Ratings         *int             `json:"ratings" binding:"omitempty,min=0"`
	Category        *string          `json:"category"`
	Available       *bool            `json:"available"`
	ImageURL        *string          `json:"image"`
}

type ItemResponse struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	MRPPrice        decimal.Decimal `json:"mrp_price"`
	SellingPrice    decimal.Decimal `json:"selling_price"`
	OfferPercentage int             `json:"offer_percentage"`
	Ratings         int             `json:"ratings"`
	Category        string          `json:"category,omitempty"`
	Available       bool            `json:"available"`
	ImageURL        string          `json:"image,omitempty"`
}

type CategoryGroup struct {
	Items []ItemResponse `json:"items"`
	Count int            `json:"count"`
}

type CatalogResponse struct {
	Categories    map[string]CategoryGroup `json:"categories"`
	CategoryCount int                      `json:"category_count"`
}

type ItemDetailResponse struct {
	ProductData  ItemResponse   `json:"product_data"`
	RelatedItems []ItemResponse `json:"related_items"`
}

type ShopResponse struct {
	Categories []string       `json:"categories"`
	NewArrival []ItemResponse `json:"new_arrival"`
	AllItems   []ItemResponse `json:"all_items"`
}

// --- Cart ---

type AddToCartRequest struct {
	ItemID   uuid.UUID `json:"item" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,min=1"`
}

type CartItemResponse struct {
	ID         uuid.UUID       `json:"id"`
	ItemID     uuid.UUID       `json:"item"`
	ItemName   string          `json:"item_name"`
	ItemPrice  decimal.Decimal `json:"item_price"`
	ItemImage  string          `json:"item_image,omitempty"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// --- Bulk purchase ---

type CartPick struct {
	ID       uuid.UUID `json:"id" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,min=1"`
}

type BulkPurchaseRequest struct {
	CartItems []CartPick `json:"cart_items" binding:"required,min=1,dive"`
}

type PurchaseResponse struct {
	Item       string          `json:"item"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type BulkPurchaseResponse struct {
	Message    string             `json:"message"`
	OrderID    string             `json:"order_id"`
	TotalPrice decimal.Decimal    `json:"total_price"`
	Purchases  []PurchaseResponse `json:"purchases"`
}

// --- Orders ---

type PurchaseLineResponse struct {
	ItemName     string          `json:"item_name"`
	ItemCategory string          `json:"item_category,omitempty"`
	ItemRatings  int             `json:"item_ratings"`
	ItemImage    string          `json:"item_image,omitempty"`
	Quantity     int             `json:"quantity"`
	TotalPrice   decimal.Decimal `json:"total_price"`
}

type OrderResponse struct {
	UniqueID     string                 `json:"unique_id"`
	TotalPrice   decimal.Decimal        `json:"total_price"`
	Status       model.OrderStatus      `json:"status"`
	OrderAt      time.Time              `json:"order_at"`
	ShippingTime *time.Time             `json:"shipping_time"`
	DeliveryTime *time.Time             `json:"delivery_time"`
	Purchases    []PurchaseLineResponse `json:"purchases"`
}

type AdminOrderResponse struct {
	UniqueID       string                 `json:"unique_id"`
	TotalPrice     decimal.Decimal        `json:"total_price"`
	Status         model.OrderStatus      `json:"status"`
	OrderAt        time.Time              `json:"order_at"`
	ShippingTime   *time.Time             `json:"shipping_time"`
	DeliveryTime   *time.Time             `json:"delivery_time"`
	User           *UserResponse          `json:"user"`
	DeliveryPerson *UserResponse          `json:"delivery_person"`
	Purchases      []PurchaseLineResponse `json:"purchases"`
}

type UpdateOrderStatusRequest struct {
	Status               model.OrderStatus `json:"status" binding:"required"`
	DeliveryPartnerEmail string            `json:"delivery_partner_email"`
}

// AdminDashboardResponse is returned by the admin order board and again after
// every status transition.
type AdminDashboardResponse struct {
	StatusCounts     map[model.OrderStatus]int `json:"status_counts"`
	LastOrders       []OrderResponse           `json:"last_orders"`
	DeliveryPartners []UserResponse            `json:"delivery_partners"`
}

type DashboardResponse struct {
	TotalAmount decimal.Decimal `json:"total_amount"`
	LastOrders  []OrderResponse `json:"last_orders"`
}
