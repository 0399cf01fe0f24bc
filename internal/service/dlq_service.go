package service

import (
	"context"
	"encoding/json"

	"tutorhub/internal/model"
	"tutorhub/internal/repository"

	"github.com/rs/zerolog"
)

// DLQService keeps dead-lettered registrations for operators.
type DLQService interface {
	Save(ctx context.Context, subscription, messageID string, data []byte, attributes map[string]string) error
}

type dlqService struct {
	repo   repository.DLQRepository
	logger zerolog.Logger
}

func NewDLQService(repo repository.DLQRepository, logger zerolog.Logger) DLQService {
	return &dlqService{repo: repo, logger: logger.With().Str("service", "DLQService").Logger()}
}

func (s *dlqService) Save(ctx context.Context, subscription, messageID string, data []byte, attributes map[string]string) error {
	var attributesJSON *string
	if len(attributes) > 0 {
		if b, err := json.Marshal(attributes); err == nil {
			str := string(b)
			attributesJSON = &str
		}
	}

	created, err := s.repo.Create(ctx, &model.DeadLetterMessage{
		SubscriptionName: subscription,
		MessageID:        messageID,
		Payload:          string(data),
		Attributes:       attributesJSON,
		Status:           model.DeadLetterStatusUnprocessed,
	})
	if err != nil {
		return err
	}
	if created {
		s.logger.Warn().Str("subscription", subscription).Str("message_id", messageID).Msg("Stored dead-lettered message")
	}
	return nil
}
