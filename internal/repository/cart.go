package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshkart/api/internal/model"
)

type CartRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.CartItem, error)
	// Upsert inserts the entry or, when one already exists for the same
	// (user, item) pair, overwrites its quantity and total price.
	Upsert(ctx context.Context, entry *model.CartItem) error
	// Delete removes the entry scoped to its owner. pgx.ErrNoRows is returned
	// both for unknown ids and for entries owned by someone else.
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

func (r *pgCartRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.CartItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.user_id, c.item_id, c.quantity, c.total_price,
			i.name, i.selling_price, COALESCE(i.image_url, '')
		 FROM cart_items c
		 JOIN items i ON i.id = c.item_id
		 WHERE c.user_id = $1
		 ORDER BY c.created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var entries []model.CartItem
	for rows.Next() {
		var e model.CartItem
		if err := rows.Scan(&e.ID, &e.UserID, &e.ItemID, &e.Quantity, &e.TotalPrice,
			&e.ItemName, &e.ItemPrice, &e.ItemImageURL); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *pgCartRepo) Upsert(ctx context.Context, entry *model.CartItem) error {
	entry.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO cart_items (id, user_id, item_id, quantity, total_price, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 ON CONFLICT (user_id, item_id)
		 DO UPDATE SET quantity = EXCLUDED.quantity, total_price = EXCLUDED.total_price, updated_at = NOW()
		 RETURNING id`,
		entry.ID, entry.UserID, entry.ItemID, entry.Quantity, entry.TotalPrice,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

func (r *pgCartRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND user_id = $2`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
