package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/freshkart/api/internal/dto"
	"github.com/freshkart/api/internal/model"
	"github.com/freshkart/api/internal/repository"
)

var ErrItemNotFound = errors.New("item not found")

const (
	itemCacheTTL = 60 * time.Second

	newArrivalsLimit   = 8
	shopCategoryLimit  = 6
	shopNewArrivalsCap = 6
)

type ItemService struct {
	itemRepo    repository.ItemRepository
	redisClient *redis.Client
}

func NewItemService(itemRepo repository.ItemRepository, redisClient *redis.Client) *ItemService {
	return &ItemService{itemRepo: itemRepo, redisClient: redisClient}
}

func (s *ItemService) Create(ctx context.Context, req dto.CreateItemRequest) (*dto.ItemResponse, error) {
	available := true
	if req.Available != nil {
		available = *req.Available
	}
	item := &model.Item{
		Name:            req.Name,
		Description:     req.Description,
		MRPPrice:        req.MRPPrice,
		SellingPrice:    req.SellingPrice,
		OfferPercentage: req.OfferPercentage,
		Ratings:         req.Ratings,
		Category:        req.Category,
		Available:       available,
		ImageURL:        req.ImageURL,
	}
	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	resp := toItemResponse(item)
	return &resp, nil
}

func (s *ItemService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ItemResponse, error) {
	cacheKey := "item:" + id.String()

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ItemResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, ErrItemNotFound
	}

	resp := toItemResponse(item)

	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, itemCacheTTL)
		}
	}
	return &resp, nil
}

// Detail is the product page payload: the item plus every other item of the
// same category.
func (s *ItemService) Detail(ctx context.Context, id uuid.UUID) (*dto.ItemDetailResponse, error) {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, ErrItemNotFound
	}

	var related []model.Item
	if item.Category != "" {
		related, err = s.itemRepo.ListRelated(ctx, item.Category, item.ID)
		if err != nil {
			return nil, fmt.Errorf("list related items: %w", err)
		}
	}
	return &dto.ItemDetailResponse{
		ProductData:  toItemResponse(item),
		RelatedItems: toItemResponses(related),
	}, nil
}

// Catalog groups every item under its category, skipping uncategorized ones.
func (s *ItemService) Catalog(ctx context.Context) (*dto.CatalogResponse, error) {
	items, err := s.itemRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	grouped := make(map[string]dto.CategoryGroup)
	for _, it := range items {
		if it.Category == "" {
			continue
		}
		group := grouped[it.Category]
		group.Items = append(group.Items, toItemResponse(&it))
		group.Count = len(group.Items)
		grouped[it.Category] = group
	}
	return &dto.CatalogResponse{Categories: grouped, CategoryCount: len(grouped)}, nil
}

func (s *ItemService) ListByCategory(ctx context.Context, category string) ([]dto.ItemResponse, error) {
	items, err := s.itemRepo.ListByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list items by category: %w", err)
	}
	return toItemResponses(items), nil
}

func (s *ItemService) NewArrivals(ctx context.Context) ([]dto.ItemResponse, error) {
	items, err := s.itemRepo.ListRecent(ctx, newArrivalsLimit)
	if err != nil {
		return nil, fmt.Errorf("list new arrivals: %w", err)
	}
	return toItemResponses(items), nil
}

func (s *ItemService) Shop(ctx context.Context) (*dto.ShopResponse, error) {
	categories, err := s.itemRepo.ListCategories(ctx, shopCategoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	newest, err := s.itemRepo.ListRecent(ctx, shopNewArrivalsCap)
	if err != nil {
		return nil, fmt.Errorf("list new arrivals: %w", err)
	}
	all, err := s.itemRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	if categories == nil {
		categories = []string{}
	}
	return &dto.ShopResponse{
		Categories: categories,
		NewArrival: toItemResponses(newest),
		AllItems:   toItemResponses(all),
	}, nil
}

func (s *ItemService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateItemRequest) (*dto.ItemResponse, error) {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, ErrItemNotFound
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.MRPPrice != nil {
		item.MRPPrice = *req.MRPPrice
	}
	if req.SellingPrice != nil {
		item.SellingPrice = *req.SellingPrice
	}
	if req.OfferPercentage != nil {
		item.OfferPercentage = *req.OfferPercentage
	}
	if req.Ratings != nil {
		item.Ratings = *req.Ratings
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.Available != nil {
		item.Available = *req.Available
	}
	if req.ImageURL != nil {
		item.ImageURL = *req.ImageURL
	}

	if err := s.itemRepo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	s.invalidateCache(ctx, id)
	resp := toItemResponse(item)
	return &resp, nil
}

func (s *ItemService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.itemRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrItemNotFound
		}
		return fmt.Errorf("delete item: %w", err)
	}
	s.invalidateCache(ctx, id)
	return nil
}

func (s *ItemService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, "item:"+id.String())
	}
}

func toItemResponse(it *model.Item) dto.ItemResponse {
	return dto.ItemResponse{
		ID:              it.ID,
		Name:            it.Name,
		Description:     it.Description,
		MRPPrice:        it.MRPPrice,
		SellingPrice:    it.SellingPrice,
		OfferPercentage: it.OfferPercentage,
		Ratings:         it.Ratings,
		Category:        it.Category,
		Available:       it.Available,
		ImageURL:        it.ImageURL,
	}
}

func toItemResponses(items []model.Item) []dto.ItemResponse {
	out := make([]dto.ItemResponse, 0, len(items))
	for i := range items {
		out = append(out, toItemResponse(&items[i]))
	}
	return out
}
