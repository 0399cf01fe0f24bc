package repository

import (
	"context"
	"fmt"

	"tutorhub/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DLQRepository interface {
	// Create stores message. Redelivery of the same (subscription, message id)
	// is ignored and reported as false.
	Create(ctx context.Context, message *model.DeadLetterMessage) (bool, error)
}

type dlqRepository struct {
	pool *pgxpool.Pool
}

func NewDLQRepository(pool *pgxpool.Pool) DLQRepository {
	return &dlqRepository{pool: pool}
}

func (r *dlqRepository) Create(ctx context.Context, message *model.DeadLetterMessage) (bool, error) {
	query := `
        INSERT INTO dead_letter_messages (subscription_name, message_id, payload, attributes, status)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (subscription_name, message_id) DO NOTHING
    `
	tag, err := r.pool.Exec(ctx, query,
		message.SubscriptionName,
		message.MessageID,
		message.Payload,
		message.Attributes,
		message.Status,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert dead-letter message: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
