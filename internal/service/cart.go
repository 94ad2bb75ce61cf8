package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/freshkart/api/internal/dto"
	"github.com/freshkart/api/internal/model"
	"github.com/freshkart/api/internal/repository"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found or does not belong to the user")
	ErrInvalidQuantity  = errors.New("quantity must be a positive integer")
	ErrItemUnavailable  = errors.New("item is not available")
)

type CartService struct {
	cartRepo repository.CartRepository
	itemRepo repository.ItemRepository
}

func NewCartService(cartRepo repository.CartRepository, itemRepo repository.ItemRepository) *CartService {
	return &CartService{cartRepo: cartRepo, itemRepo: itemRepo}
}

func (s *CartService) List(ctx context.Context, userID uuid.UUID) ([]dto.CartItemResponse, error) {
	entries, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	out := make([]dto.CartItemResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.CartItemResponse{
			ID:         e.ID,
			ItemID:     e.ItemID,
			ItemName:   e.ItemName,
			ItemPrice:  e.ItemPrice,
			ItemImage:  e.ItemImageURL,
			Quantity:   e.Quantity,
			TotalPrice: e.TotalPrice,
		})
	}
	return out, nil
}

// AddOrUpdate writes the (user, item) cart entry with the given quantity,
// overwriting any existing quantity. The stored total is always recomputed from
// the item's current selling price; nothing about the price is trusted from the
// caller.
func (s *CartService) AddOrUpdate(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*dto.CartItemResponse, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	if !item.Available {
		return nil, ErrItemUnavailable
	}

	entry := &model.CartItem{
		UserID:     userID,
		ItemID:     itemID,
		Quantity:   quantity,
		TotalPrice: model.LineTotal(quantity, item.SellingPrice),
	}
	if err := s.cartRepo.Upsert(ctx, entry); err != nil {
		return nil, fmt.Errorf("save cart item: %w", err)
	}

	return &dto.CartItemResponse{
		ID:         entry.ID,
		ItemID:     itemID,
		ItemName:   item.Name,
		ItemPrice:  item.SellingPrice,
		ItemImage:  item.ImageURL,
		Quantity:   quantity,
		TotalPrice: entry.TotalPrice,
	}, nil
}

func (s *CartService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.cartRepo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCartItemNotFound
		}
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}
