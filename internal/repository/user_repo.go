package repository

import (
	"context"
	"errors"
	"fmt"

	"tutorhub/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// GetUserEmail returns nil when the user does not exist.
	GetUserEmail(ctx context.Context, id string) (*string, error)
	UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error
}

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	query := `SELECT user_id, email, name, stripe_customer_id, created_at, updated_at FROM user_profiles WHERE user_id = $1`
	err := r.pool.QueryRow(ctx, query, id).Scan(&u.UserID, &u.Email, &u.Name, &u.StripeCustomerID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}
	return &u, nil
}

func (r *userRepo) GetUserEmail(ctx context.Context, id string) (*string, error) {
	var email string
	err := r.pool.QueryRow(ctx, `SELECT email FROM user_profiles WHERE user_id = $1`, id).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting email for user %s: %w", id, err)
	}
	return &email, nil
}

func (r *userRepo) UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error {
	query := `UPDATE user_profiles SET stripe_customer_id = $1, updated_at = NOW() WHERE user_id = $2`
	if _, err := r.pool.Exec(ctx, query, customerID, userID); err != nil {
		return fmt.Errorf("updating stripe customer for user %s: %w", userID, err)
	}
	return nil
}
