package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshkart/api/internal/model"
	"github.com/freshkart/api/internal/repository"
)

type mockOrderRepo struct {
	orders map[uuid.UUID]*model.Order
	cart   map[uuid.UUID]*model.CartItem
	prices map[uuid.UUID]decimal.Decimal
	names  map[uuid.UUID]string
	events []model.OrderEvent
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		orders: make(map[uuid.UUID]*model.Order),
		cart:   make(map[uuid.UUID]*model.CartItem),
		prices: make(map[uuid.UUID]decimal.Decimal),
		names:  make(map[uuid.UUID]string),
	}
}

func (m *mockOrderRepo) addCartEntry(userID uuid.UUID, name, price string, quantity int) *model.CartItem {
	itemID := uuid.New()
	m.prices[itemID] = decimal.RequireFromString(price)
	m.names[itemID] = name
	entry := &model.CartItem{ID: uuid.New(), UserID: userID, ItemID: itemID, Quantity: quantity}
	m.cart[entry.ID] = entry
	return entry
}

func (m *mockOrderRepo) PurchaseCart(_ context.Context, userID uuid.UUID, picks []model.CartPick) (*model.Order, error) {
	// Validate every pick first so a failure converts nothing, mirroring the
	// real repository's transaction rollback.
	for _, p := range picks {
		entry, ok := m.cart[p.CartItemID]
		if !ok || entry.UserID != userID {
			return nil, &repository.CartItemMissingError{ID: p.CartItemID}
		}
	}

	order := &model.Order{
		ID:       uuid.New(),
		UserID:   &userID,
		UniqueID: model.NewOrderCode(),
		Status:   model.OrderStatusPending,
		OrderAt:  time.Now(),
	}
	total := decimal.Zero
	for _, p := range picks {
		entry := m.cart[p.CartItemID]
		delete(m.cart, p.CartItemID)
		line := model.Purchase{
			ID:         uuid.New(),
			UserID:     &userID,
			ItemID:     entry.ItemID,
			OrderID:    order.ID,
			Quantity:   p.Quantity,
			TotalPrice: model.LineTotal(p.Quantity, m.prices[entry.ItemID]),
			ItemName:   m.names[entry.ItemID],
		}
		total = total.Add(line.TotalPrice)
		order.Purchases = append(order.Purchases, line)
	}
	order.TotalPrice = total
	m.orders[order.ID] = order
	return order, nil
}

func (m *mockOrderRepo) GetByUniqueID(_ context.Context, uniqueID string) (*model.Order, error) {
	for _, o := range m.orders {
		if o.UniqueID == uniqueID {
			return o, nil
		}
	}
	return nil, nil
}

func (m *mockOrderRepo) GetByIDForUser(_ context.Context, id, userID uuid.UUID) (*model.Order, error) {
	o, ok := m.orders[id]
	if !ok || o.UserID == nil || *o.UserID != userID {
		return nil, nil
	}
	return o, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	var out []model.Order
	for _, o := range m.orders {
		if o.UserID != nil && *o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListRecent(_ context.Context, limit int) ([]model.Order, error) {
	var out []model.Order
	for _, o := range m.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderAt.After(out[j].OrderAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockOrderRepo) ListByStatus(_ context.Context, status model.OrderStatus) ([]model.Order, error) {
	var out []model.Order
	for _, o := range m.orders {
		if o.Status == status {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListAll(_ context.Context) ([]model.Order, error) {
	var out []model.Order
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockOrderRepo) CountByStatus(_ context.Context) (map[model.OrderStatus]int, error) {
	counts := make(map[model.OrderStatus]int)
	for _, o := range m.orders {
		counts[o.Status]++
	}
	return counts, nil
}

func (m *mockOrderRepo) TotalRevenue(_ context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, o := range m.orders {
		total = total.Add(o.TotalPrice)
	}
	return total, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, order *model.Order) error {
	if existing, ok := m.orders[order.ID]; ok {
		*existing = *order
	}
	return nil
}

func (m *mockOrderRepo) RecordEvent(_ context.Context, event model.OrderEvent) error {
	m.events = append(m.events, event)
	return nil
}

func TestOrderService_BulkPurchase(t *testing.T) {
	repo := newMockOrderRepo()
	userID := uuid.New()
	a := repo.addCartEntry(userID, "Margherita", "10.00", 2)
	b := repo.addCartEntry(userID, "Cola", "5.00", 1)

	svc := NewOrderService(repo, newMockUserRepo(), nil)
	resp, err := svc.BulkPurchase(context.Background(), userID, []model.CartPick{
		{CartItemID: a.ID, Quantity: 2},
		{CartItemID: b.ID, Quantity: 1},
	})
	require.NoError(t, err)
	assert.True(t, resp.TotalPrice.Equal(decimal.RequireFromString("25.00")))
	require.Len(t, resp.Purchases, 2)
	assert.Len(t, resp.OrderID, model.OrderCodeLength)
	assert.Empty(t, repo.cart, "consumed entries must leave the cart")
}

func TestOrderService_BulkPurchase_PickQuantityOverridesCart(t *testing.T) {
	repo := newMockOrderRepo()
	userID := uuid.New()
	entry := repo.addCartEntry(userID, "Margherita", "10.00", 2)

	svc := NewOrderService(repo, newMockUserRepo(), nil)
	resp, err := svc.BulkPurchase(context.Background(), userID, []model.CartPick{
		{CartItemID: entry.ID, Quantity: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Purchases[0].Quantity)
	assert.True(t, resp.TotalPrice.Equal(decimal.RequireFromString("40.00")))
}

func TestOrderService_BulkPurchase_EmptyPicks(t *testing.T) {
	svc := NewOrderService(newMockOrderRepo(), newMockUserRepo(), nil)
	_, err := svc.BulkPurchase(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrNoCartItems)
}

func TestOrderService_BulkPurchase_NonPositiveQuantity(t *testing.T) {
	repo := newMockOrderRepo()
	userID := uuid.New()
	entry := repo.addCartEntry(userID, "Margherita", "10.00", 1)

	svc := NewOrderService(repo, newMockUserRepo(), nil)
	_, err := svc.BulkPurchase(context.Background(), userID, []model.CartPick{
		{CartItemID: entry.ID, Quantity: 0},
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Len(t, repo.cart, 1, "nothing may be converted on validation failure")
}

func TestOrderService_BulkPurchase_MissingEntryConvertsNothing(t *testing.T) {
	repo := newMockOrderRepo()
	userID := uuid.New()
	valid := repo.addCartEntry(userID, "Margherita", "10.00", 1)
	foreign := repo.addCartEntry(uuid.New(), "Cola", "5.00", 1)

	svc := NewOrderService(repo, newMockUserRepo(), nil)
	_, err := svc.BulkPurchase(context.Background(), userID, []model.CartPick{
		{CartItemID: valid.ID, Quantity: 1},
		{CartItemID: foreign.ID, Quantity: 1},
	})

	var missing *repository.CartItemMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, foreign.ID, missing.ID)
	assert.Len(t, repo.cart, 2, "all-or-nothing: the valid entry must survive")
	assert.Empty(t, repo.orders, "no partial order may remain")
}

func TestOrderService_CancelOwnOrder(t *testing.T) {
	repo := newMockOrderRepo()
	userID := uuid.New()
	entry := repo.addCartEntry(userID, "Margherita", "10.00", 1)

	svc := NewOrderService(repo, newMockUserRepo(), nil)
	resp, err := svc.BulkPurchase(context.Background(), userID, []model.CartPick{
		{CartItemID: entry.ID, Quantity: 1},
	})
	require.NoError(t, err)

	order, _ := repo.GetByUniqueID(context.Background(), resp.OrderID)
	require.NoError(t, svc.CancelOwnOrder(context.Background(), userID, order.ID))
	assert.Equal(t, model.OrderStatusCanceled, repo.orders[order.ID].Status)
}

func TestOrderService_CancelOwnOrder_OtherUsersOrder(t *testing.T) {
	repo := newMockOrderRepo()
	owner := uuid.New()
	entry := repo.addCartEntry(owner, "Margherita", "10.00", 1)

	svc := NewOrderService(repo, newMockUserRepo(), nil)
	resp, err := svc.BulkPurchase(context.Background(), owner, []model.CartPick{
		{CartItemID: entry.ID, Quantity: 1},
	})
	require.NoError(t, err)

	order, _ := repo.GetByUniqueID(context.Background(), resp.OrderID)
	err = svc.CancelOwnOrder(context.Background(), uuid.New(), order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Equal(t, model.OrderStatusPending, repo.orders[order.ID].Status)
}

func placeOrder(t *testing.T, repo *mockOrderRepo, svc *OrderService, userID uuid.UUID) *model.Order {
	t.Helper()
	entry := repo.addCartEntry(userID, "Margherita", "10.00", 1)
	resp, err := svc.BulkPurchase(context.Background(), userID, []model.CartPick{
		{CartItemID: entry.ID, Quantity: 1},
	})
	require.NoError(t, err)
	order, err := repo.GetByUniqueID(context.Background(), resp.OrderID)
	require.NoError(t, err)
	require.NotNil(t, order)
	return order
}

func TestOrderService_UpdateStatus_ShippedAssignsDeliveryPerson(t *testing.T) {
	repo := newMockOrderRepo()
	userRepo := newMockUserRepo()
	partner := &model.User{Email: "rider@example.com", MobileNumber: "555", Groups: []string{model.GroupDeliveryPartner}}
	userRepo.add(partner)

	svc := NewOrderService(repo, userRepo, nil)
	order := placeOrder(t, repo, svc, uuid.New())

	_, err := svc.UpdateStatus(context.Background(), order.UniqueID, model.OrderStatusShipped, "rider@example.com")
	require.NoError(t, err)

	updated := repo.orders[order.ID]
	assert.Equal(t, model.OrderStatusShipped, updated.Status)
	require.NotNil(t, updated.DeliveryPersonID)
	assert.Equal(t, partner.ID, *updated.DeliveryPersonID)
	assert.NotNil(t, updated.ShippingTime)
}

func TestOrderService_UpdateStatus_ShippedTwiceKeepsTimestamp(t *testing.T) {
	repo := newMockOrderRepo()
	userRepo := newMockUserRepo()
	userRepo.add(&model.User{Email: "rider@example.com", MobileNumber: "555"})

	svc := NewOrderService(repo, userRepo, nil)
	order := placeOrder(t, repo, svc, uuid.New())

	_, err := svc.UpdateStatus(context.Background(), order.UniqueID, model.OrderStatusShipped, "rider@example.com")
	require.NoError(t, err)
	first := *repo.orders[order.ID].ShippingTime

	time.Sleep(5 * time.Millisecond)
	_, err = svc.UpdateStatus(context.Background(), order.UniqueID, model.OrderStatusShipped, "rider@example.com")
	require.NoError(t, err)
	assert.Equal(t, first, *repo.orders[order.ID].ShippingTime)
}

func TestOrderService_UpdateStatus_UnknownDeliveryPartner(t *testing.T) {
	repo := newMockOrderRepo()
	svc := NewOrderService(repo, newMockUserRepo(), nil)
	order := placeOrder(t, repo, svc, uuid.New())

	_, err := svc.UpdateStatus(context.Background(), order.UniqueID, model.OrderStatusShipped, "nobody@example.com")
	assert.ErrorIs(t, err, ErrDeliveryPersonNotFound)
	assert.Equal(t, model.OrderStatusPending, repo.orders[order.ID].Status)
}

func TestOrderService_UpdateStatus_InvalidStatus(t *testing.T) {
	repo := newMockOrderRepo()
	svc := NewOrderService(repo, newMockUserRepo(), nil)
	order := placeOrder(t, repo, svc, uuid.New())

	_, err := svc.UpdateStatus(context.Background(), order.UniqueID, model.OrderStatus("Returned"), "")
	assert.ErrorIs(t, err, model.ErrInvalidStatus)
	assert.Equal(t, model.OrderStatusPending, repo.orders[order.ID].Status)
	assert.Nil(t, repo.orders[order.ID].ShippingTime)
}

func TestOrderService_ListByStatus_InvalidStatus(t *testing.T) {
	svc := NewOrderService(newMockOrderRepo(), newMockUserRepo(), nil)
	_, err := svc.ListByStatus(context.Background(), model.OrderStatus("bogus"))
	assert.ErrorIs(t, err, model.ErrInvalidStatus)
}

func TestOrderService_Dashboard_EmptyOrders(t *testing.T) {
	svc := NewOrderService(newMockOrderRepo(), newMockUserRepo(), nil)
	resp, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.TotalAmount.IsZero())
	assert.Empty(t, resp.LastOrders)
}

func TestOrderService_AdminBoard_EmptyOrders(t *testing.T) {
	svc := NewOrderService(newMockOrderRepo(), newMockUserRepo(), nil)
	resp, err := svc.AdminBoard(context.Background())
	require.NoError(t, err)
	assert.Empty(t, resp.StatusCounts)
	assert.Empty(t, resp.LastOrders)
	assert.Empty(t, resp.DeliveryPartners)
}
