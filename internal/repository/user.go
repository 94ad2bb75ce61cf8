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

type UserRepository interface {
	Create(ctx context.Context, user *model.User, groups ...string) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByMobileNumber(ctx context.Context, mobile string) (*model.User, error)
	ListByGroup(ctx context.Context, group string) ([]model.User, error)
}

type pgUserRepo struct{ pool *pgxpool.Pool }

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &pgUserRepo{pool: pool}
}

func (r *pgUserRepo) Create(ctx context.Context, user *model.User, groups ...string) error {
	user.ID = uuid.New()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO users (id, email, mobile_number, password_hash, name, address, city, image_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		 RETURNING created_at`,
		user.ID, user.Email, user.MobileNumber, user.Password, user.Name, user.Address, user.City, user.ImageURL,
	).Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	for _, g := range groups {
		_, err = tx.Exec(ctx,
			`INSERT INTO user_groups (user_id, group_id)
			 SELECT $1, id FROM groups WHERE name = $2
			 ON CONFLICT DO NOTHING`,
			user.ID, g,
		)
		if err != nil {
			return fmt.Errorf("add user to group %s: %w", g, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	user.Groups = append(user.Groups, groups...)
	return nil
}

const userSelect = `SELECT u.id, u.email, u.mobile_number, u.password_hash, u.name, u.address, u.city, u.image_url, u.created_at,
	COALESCE(array_agg(g.name) FILTER (WHERE g.name IS NOT NULL), '{}')
	FROM users u
	LEFT JOIN user_groups ug ON ug.user_id = u.id
	LEFT JOIN groups g ON g.id = ug.group_id`

func (r *pgUserRepo) getOne(ctx context.Context, where string, arg any) (*model.User, error) {
	user := &model.User{}
	err := r.pool.QueryRow(ctx, userSelect+" WHERE "+where+" GROUP BY u.id", arg).Scan(
		&user.ID, &user.Email, &user.MobileNumber, &user.Password, &user.Name,
		&user.Address, &user.City, &user.ImageURL, &user.CreatedAt, &user.Groups,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *pgUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getOne(ctx, "u.id = $1", id)
}

func (r *pgUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "u.email = $1", email)
}

func (r *pgUserRepo) GetByMobileNumber(ctx context.Context, mobile string) (*model.User, error) {
	return r.getOne(ctx, "u.mobile_number = $1", mobile)
}

func (r *pgUserRepo) ListByGroup(ctx context.Context, group string) ([]model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.email, u.mobile_number, u.name, u.address, u.city, u.image_url, u.created_at
		 FROM users u
		 JOIN user_groups ug ON ug.user_id = u.id
		 JOIN groups g ON g.id = ug.group_id
		 WHERE g.name = $1
		 ORDER BY u.created_at`,
		group,
	)
	if err != nil {
		return nil, fmt.Errorf("list users by group: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.MobileNumber, &u.Name, &u.Address, &u.City, &u.ImageURL, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Groups = []string{group}
		users = append(users, u)
	}
	return users, rows.Err()
}
