package model

import "time"

const DeadLetterStatusUnprocessed = "unprocessed"

// DeadLetterMessage is a registration that Pub/Sub gave up delivering,
// kept for manual replay.
type DeadLetterMessage struct {
	ID               string    `db:"id" json:"id"`
	SubscriptionName string    `db:"subscription_name" json:"subscription_name"`
	MessageID        string    `db:"message_id" json:"message_id"`
	Payload          string    `db:"payload" json:"payload"`
	Attributes       *string   `db:"attributes" json:"attributes,omitempty"` // JSON object
	Status           string    `db:"status" json:"status"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
