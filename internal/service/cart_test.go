package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshkart/api/internal/model"
)

type mockCartRepo struct {
	entries map[uuid.UUID]*model.CartItem
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{entries: make(map[uuid.UUID]*model.CartItem)}
}

func (m *mockCartRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]model.CartItem, error) {
	var out []model.CartItem
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockCartRepo) Upsert(_ context.Context, entry *model.CartItem) error {
	for _, e := range m.entries {
		if e.UserID == entry.UserID && e.ItemID == entry.ItemID {
			e.Quantity = entry.Quantity
			e.TotalPrice = entry.TotalPrice
			entry.ID = e.ID
			return nil
		}
	}
	entry.ID = uuid.New()
	clone := *entry
	m.entries[entry.ID] = &clone
	return nil
}

func (m *mockCartRepo) Delete(_ context.Context, id, userID uuid.UUID) error {
	if e, ok := m.entries[id]; ok && e.UserID == userID {
		delete(m.entries, id)
		return nil
	}
	return pgx.ErrNoRows
}

func TestCartService_AddOrUpdate_ComputesTotal(t *testing.T) {
	cartRepo := newMockCartRepo()
	itemRepo := newMockItemRepo()
	item := itemRepo.add("Margherita", "pizza", "10.00")

	svc := NewCartService(cartRepo, itemRepo)
	entry, err := svc.AddOrUpdate(context.Background(), uuid.New(), item.ID, 3)
	require.NoError(t, err)
	assert.True(t, entry.TotalPrice.Equal(decimal.RequireFromString("30.00")))
}

func TestCartService_AddOrUpdate_OverwritesQuantity(t *testing.T) {
	cartRepo := newMockCartRepo()
	itemRepo := newMockItemRepo()
	item := itemRepo.add("Margherita", "pizza", "10.00")
	userID := uuid.New()

	svc := NewCartService(cartRepo, itemRepo)
	first, err := svc.AddOrUpdate(context.Background(), userID, item.ID, 2)
	require.NoError(t, err)

	second, err := svc.AddOrUpdate(context.Background(), userID, item.ID, 5)
	require.NoError(t, err)

	// One entry per (user, item): same row, quantity replaced not accumulated.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)
	assert.True(t, second.TotalPrice.Equal(decimal.RequireFromString("50.00")))
	assert.Len(t, cartRepo.entries, 1)
}

func TestCartService_AddOrUpdate_RejectsNonPositiveQuantity(t *testing.T) {
	itemRepo := newMockItemRepo()
	item := itemRepo.add("Margherita", "pizza", "10.00")
	svc := NewCartService(newMockCartRepo(), itemRepo)

	for _, qty := range []int{0, -1, -10} {
		_, err := svc.AddOrUpdate(context.Background(), uuid.New(), item.ID, qty)
		assert.ErrorIs(t, err, ErrInvalidQuantity, "quantity %d", qty)
	}
}

func TestCartService_AddOrUpdate_ItemNotFound(t *testing.T) {
	svc := NewCartService(newMockCartRepo(), newMockItemRepo())
	_, err := svc.AddOrUpdate(context.Background(), uuid.New(), uuid.New(), 1)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestCartService_AddOrUpdate_ItemUnavailable(t *testing.T) {
	itemRepo := newMockItemRepo()
	item := itemRepo.add("Margherita", "pizza", "10.00")
	item.Available = false

	svc := NewCartService(newMockCartRepo(), itemRepo)
	_, err := svc.AddOrUpdate(context.Background(), uuid.New(), item.ID, 1)
	assert.ErrorIs(t, err, ErrItemUnavailable)
}

func TestCartService_Delete(t *testing.T) {
	cartRepo := newMockCartRepo()
	itemRepo := newMockItemRepo()
	item := itemRepo.add("Margherita", "pizza", "10.00")
	userID := uuid.New()

	svc := NewCartService(cartRepo, itemRepo)
	entry, err := svc.AddOrUpdate(context.Background(), userID, item.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), userID, entry.ID))
	assert.Empty(t, cartRepo.entries)
}

func TestCartService_Delete_OtherUsersEntryLooksMissing(t *testing.T) {
	cartRepo := newMockCartRepo()
	itemRepo := newMockItemRepo()
	item := itemRepo.add("Margherita", "pizza", "10.00")
	owner := uuid.New()

	svc := NewCartService(cartRepo, itemRepo)
	entry, err := svc.AddOrUpdate(context.Background(), owner, item.ID, 1)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), uuid.New(), entry.ID)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
	assert.Len(t, cartRepo.entries, 1, "entry must survive a cross-user delete")
}
