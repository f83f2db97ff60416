package clients

import (
	"encoding/json"
	"fmt"
	"time"

	"edustream-access-svc/src/internal/config"
	"edustream-access-svc/src/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// ActivityClient publishes account-activity events for the audit trail.
// Publishing is best effort: callers log a degradation and carry on.
type ActivityClient struct {
	channel *amqp.Channel
	cfg     *config.RabbitMQConfig
}

// NewActivityClient creates a new activity publisher on an open channel.
func NewActivityClient(cfg *config.Configuration, channel *amqp.Channel) *ActivityClient {
	return &ActivityClient{
		channel: channel,
		cfg:     &cfg.Queue.RabbitMQ,
	}
}

// PublishActivity publishes an activity message to RabbitMQ.
func (c *ActivityClient) PublishActivity(message models.ActivityMessage) error {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal activity message: %w", err)
	}

	err = c.channel.Publish(
		c.cfg.Exchange,
		c.cfg.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)

	if err != nil {
		logrus.WithError(err).Error("Failed to publish activity message")
		return fmt.Errorf("failed to publish activity message: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"account_id":  message.AccountID,
		"service":     message.ServiceName,
		"action":      message.Action,
		"exchange":    c.cfg.Exchange,
		"routing_key": c.cfg.RoutingKey,
	}).Debug("Activity message published")

	return nil
}
