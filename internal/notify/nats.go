// Package notify bridges the pipeline's notification output onto the
// NOTIFICATIONS JetStream stream, where external dispatchers (bot, SMS,
// email) pick them up.
package notify

import (
	"context"
	"fmt"

	"github.com/your-org/sitewatch/internal/models"
	"github.com/your-org/sitewatch/internal/queue"
)

type NATSSink struct {
	producer *queue.Producer
}

func NewNATSSink(producer *queue.Producer) *NATSSink {
	return &NATSSink{producer: producer}
}

func (s *NATSSink) Notify(ctx context.Context, n *models.Notification) error {
	if err := s.producer.PublishNotification(ctx, string(n.Severity), n); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
