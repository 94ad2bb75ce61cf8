package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/freshkart/api/internal/dto"
	"github.com/freshkart/api/internal/model"
	"github.com/freshkart/api/internal/repository"
)

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrNoCartItems            = errors.New("no cart items provided for purchase")
	ErrDeliveryPersonNotFound = errors.New("delivery partner not found")
)

const (
	orderEventsQueue = "order.events"

	adminBoardOrders = 8
	newOrdersLimit   = 8
	dashboardOrders  = 6
)

type OrderService struct {
	orderRepo repository.OrderRepository
	userRepo  repository.UserRepository
	amqpCh    *amqp.Channel
}

func NewOrderService(orderRepo repository.OrderRepository, userRepo repository.UserRepository, amqpCh *amqp.Channel) *OrderService {
	return &OrderService{orderRepo: orderRepo, userRepo: userRepo, amqpCh: amqpCh}
}

// BulkPurchase converts the picked cart entries into a single order. The repo
// runs the whole conversion in one transaction; any missing entry surfaces as a
// *repository.CartItemMissingError and leaves nothing behind.
func (s *OrderService) BulkPurchase(ctx context.Context, userID uuid.UUID, picks []model.CartPick) (*dto.BulkPurchaseResponse, error) {
	if len(picks) == 0 {
		return nil, ErrNoCartItems
	}
	for _, p := range picks {
		if p.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}

	order, err := s.orderRepo.PurchaseCart(ctx, userID, picks)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, order, model.OrderEventPlaced)

	purchases := make([]dto.PurchaseResponse, 0, len(order.Purchases))
	for _, p := range order.Purchases {
		purchases = append(purchases, dto.PurchaseResponse{
			Item:       p.ItemName,
			Quantity:   p.Quantity,
			TotalPrice: p.TotalPrice,
		})
	}
	return &dto.BulkPurchaseResponse{
		Message:    "Purchase successful!",
		OrderID:    order.UniqueID,
		TotalPrice: order.TotalPrice,
		Purchases:  purchases,
	}, nil
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]dto.OrderResponse, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user orders: %w", err)
	}
	return toOrderResponses(orders), nil
}

// CancelOwnOrder sets the user's own order to Canceled. Orders belonging to
// someone else are indistinguishable from unknown ones.
func (s *OrderService) CancelOwnOrder(ctx context.Context, userID, orderID uuid.UUID) error {
	order, err := s.orderRepo.GetByIDForUser(ctx, orderID, userID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return ErrOrderNotFound
	}

	if err := order.ApplyStatus(model.OrderStatusCanceled, time.Now()); err != nil {
		return err
	}
	if err := s.orderRepo.UpdateStatus(ctx, order); err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	s.publishEvent(ctx, order, model.OrderEventStatusChanged)
	return nil
}

func (s *OrderService) GetByUniqueID(ctx context.Context, uniqueID string) (*dto.AdminOrderResponse, error) {
	order, err := s.orderRepo.GetByUniqueID(ctx, uniqueID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	resp := toAdminOrderResponse(order)
	return &resp, nil
}

// UpdateStatus applies an admin status transition. Shipping additionally
// resolves the delivery partner by email and attaches it to the order. The
// timestamp rules live on the model: first transition into Shipped/Delivered
// stamps the time, later re-entries never overwrite it. No transition graph is
// enforced beyond enum validity.
func (s *OrderService) UpdateStatus(ctx context.Context, uniqueID string, status model.OrderStatus, deliveryPartnerEmail string) (*dto.AdminDashboardResponse, error) {
	order, err := s.orderRepo.GetByUniqueID(ctx, uniqueID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	if status == model.OrderStatusShipped {
		person, err := s.userRepo.GetByEmail(ctx, deliveryPartnerEmail)
		if err != nil {
			return nil, fmt.Errorf("get delivery partner: %w", err)
		}
		if person == nil {
			return nil, ErrDeliveryPersonNotFound
		}
		order.DeliveryPersonID = &person.ID
	}

	if err := order.ApplyStatus(status, time.Now()); err != nil {
		return nil, err
	}
	if err := s.orderRepo.UpdateStatus(ctx, order); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	s.publishEvent(ctx, order, model.OrderEventStatusChanged)

	return s.AdminBoard(ctx)
}

// AdminBoard is the admin dashboard payload: counts per status, the most recent
// orders and the delivery partner roster. It tolerates an empty order set.
func (s *OrderService) AdminBoard(ctx context.Context) (*dto.AdminDashboardResponse, error) {
	counts, err := s.orderRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	recent, err := s.orderRepo.ListRecent(ctx, adminBoardOrders)
	if err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}
	partners, err := s.userRepo.ListByGroup(ctx, model.GroupDeliveryPartner)
	if err != nil {
		return nil, fmt.Errorf("list delivery partners: %w", err)
	}

	roster := make([]dto.UserResponse, 0, len(partners))
	for i := range partners {
		roster = append(roster, ToUserResponse(&partners[i]))
	}
	return &dto.AdminDashboardResponse{
		StatusCounts:     counts,
		LastOrders:       toOrderResponses(recent),
		DeliveryPartners: roster,
	}, nil
}

func (s *OrderService) ListByStatus(ctx context.Context, status model.OrderStatus) ([]dto.OrderResponse, error) {
	if !status.Valid() {
		return nil, model.ErrInvalidStatus
	}
	orders, err := s.orderRepo.ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list orders by status: %w", err)
	}
	return toOrderResponses(orders), nil
}

func (s *OrderService) NewOrders(ctx context.Context) ([]dto.OrderResponse, error) {
	orders, err := s.orderRepo.ListRecent(ctx, newOrdersLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}
	return toOrderResponses(orders), nil
}

func (s *OrderService) Payments(ctx context.Context) ([]dto.AdminOrderResponse, error) {
	orders, err := s.orderRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]dto.AdminOrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toAdminOrderResponse(&orders[i]))
	}
	return out, nil
}

func (s *OrderService) Dashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	total, err := s.orderRepo.TotalRevenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("total revenue: %w", err)
	}
	recent, err := s.orderRepo.ListRecent(ctx, dashboardOrders)
	if err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}
	return &dto.DashboardResponse{TotalAmount: total, LastOrders: toOrderResponses(recent)}, nil
}

func (s *OrderService) publishEvent(ctx context.Context, order *model.Order, eventType model.OrderEventType) {
	if s.amqpCh == nil {
		return
	}
	event := model.OrderEvent{
		ID:        uuid.New(),
		OrderID:   order.ID,
		UniqueID:  order.UniqueID,
		Type:      eventType,
		Status:    order.Status,
		CreatedAt: time.Now(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		return
	}
	_ = s.amqpCh.PublishWithContext(ctx, "", orderEventsQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	return dto.OrderResponse{
		UniqueID:     order.UniqueID,
		TotalPrice:   order.TotalPrice,
		Status:       order.Status,
		OrderAt:      order.OrderAt,
		ShippingTime: order.ShippingTime,
		DeliveryTime: order.DeliveryTime,
		Purchases:    toPurchaseLines(order.Purchases),
	}
}

func toOrderResponses(orders []model.Order) []dto.OrderResponse {
	out := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResponse(&orders[i]))
	}
	return out
}

func toAdminOrderResponse(order *model.Order) dto.AdminOrderResponse {
	resp := dto.AdminOrderResponse{
		UniqueID:     order.UniqueID,
		TotalPrice:   order.TotalPrice,
		Status:       order.Status,
		OrderAt:      order.OrderAt,
		ShippingTime: order.ShippingTime,
		DeliveryTime: order.DeliveryTime,
		Purchases:    toPurchaseLines(order.Purchases),
	}
	if order.User != nil {
		u := ToUserResponse(order.User)
		resp.User = &u
	}
	if order.DeliveryPerson != nil {
		dp := ToUserResponse(order.DeliveryPerson)
		resp.DeliveryPerson = &dp
	}
	return resp
}

func toPurchaseLines(purchases []model.Purchase) []dto.PurchaseLineResponse {
	out := make([]dto.PurchaseLineResponse, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, dto.PurchaseLineResponse{
			ItemName:     p.ItemName,
			ItemCategory: p.ItemCategory,
			ItemRatings:  p.ItemRatings,
			ItemImage:    p.ItemImageURL,
			Quantity:     p.Quantity,
			TotalPrice:   p.TotalPrice,
		})
	}
	return out
}
