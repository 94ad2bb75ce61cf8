package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshkart/api/internal/model"
)

type ItemRepository interface {
	Create(ctx context.Context, item *model.Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Item, error)
	List(ctx context.Context) ([]model.Item, error)
	ListByCategory(ctx context.Context, category string) ([]model.Item, error)
	ListRelated(ctx context.Context, category string, exclude uuid.UUID) ([]model.Item, error)
	ListRecent(ctx context.Context, limit int) ([]model.Item, error)
	ListCategories(ctx context.Context, limit int) ([]string, error)
	Update(ctx context.Context, item *model.Item) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgItemRepo struct{ pool *pgxpool.Pool }

func NewItemRepository(pool *pgxpool.Pool) ItemRepository {
	return &pgItemRepo{pool: pool}
}

const itemColumns = `id, name, description, mrp_price, selling_price, offer_percentage, ratings,
	COALESCE(category, ''), available, COALESCE(image_url, ''), created_at, updated_at`

func scanItem(row pgx.Row, it *model.Item) error {
	return row.Scan(
		&it.ID, &it.Name, &it.Description, &it.MRPPrice, &it.SellingPrice,
		&it.OfferPercentage, &it.Ratings, &it.Category, &it.Available, &it.ImageURL,
		&it.CreatedAt, &it.UpdatedAt,
	)
}

func (r *pgItemRepo) Create(ctx context.Context, item *model.Item) error {
	item.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO items (id, name, description, mrp_price, selling_price, offer_percentage, ratings, category, available, image_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, NULLIF($10, ''), NOW(), NOW())
		 RETURNING created_at, updated_at`,
		item.ID, item.Name, item.Description, item.MRPPrice, item.SellingPrice,
		item.OfferPercentage, item.Ratings, item.Category, item.Available, item.ImageURL,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

func (r *pgItemRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	it := &model.Item{}
	err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id), it)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

func (r *pgItemRepo) queryItems(ctx context.Context, query string, args ...any) ([]model.Item, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var it model.Item
		if err := scanItem(rows, &it); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *pgItemRepo) List(ctx context.Context) ([]model.Item, error) {
	return r.queryItems(ctx, `SELECT `+itemColumns+` FROM items ORDER BY created_at DESC`)
}

func (r *pgItemRepo) ListByCategory(ctx context.Context, category string) ([]model.Item, error) {
	return r.queryItems(ctx, `SELECT `+itemColumns+` FROM items WHERE category = $1 ORDER BY created_at DESC`, category)
}

func (r *pgItemRepo) ListRelated(ctx context.Context, category string, exclude uuid.UUID) ([]model.Item, error) {
	return r.queryItems(ctx,
		`SELECT `+itemColumns+` FROM items WHERE category = $1 AND id <> $2 ORDER BY created_at DESC`,
		category, exclude,
	)
}

func (r *pgItemRepo) ListRecent(ctx context.Context, limit int) ([]model.Item, error) {
	return r.queryItems(ctx, `SELECT `+itemColumns+` FROM items ORDER BY created_at DESC LIMIT $1`, limit)
}

func (r *pgItemRepo) ListCategories(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT category FROM items WHERE category IS NOT NULL AND category <> '' ORDER BY category LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *pgItemRepo) Update(ctx context.Context, item *model.Item) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE items SET name=$2, description=$3, mrp_price=$4, selling_price=$5, offer_percentage=$6,
			ratings=$7, category=NULLIF($8, ''), available=$9, image_url=NULLIF($10, ''), updated_at=NOW()
		 WHERE id=$1 RETURNING updated_at`,
		item.ID, item.Name, item.Description, item.MRPPrice, item.SellingPrice,
		item.OfferPercentage, item.Ratings, item.Category, item.Available, item.ImageURL,
	).Scan(&item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func (r *pgItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
