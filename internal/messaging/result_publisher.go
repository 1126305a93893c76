package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// EventSessionCompleted - тип события о завершённой сессии.
const EventSessionCompleted = "session.completed"

// SessionCompletedEvent публикуется, когда для сессии построена итоговая оценка.
type SessionCompletedEvent struct {
	Type         string    `json:"type"`
	SessionID    string    `json:"session_id"`
	Category     string    `json:"category"`
	Role         string    `json:"role,omitempty"`
	CorrectCount int       `json:"correct_count"`
	Total        int       `json:"total"`
	CompletedAt  time.Time `json:"completed_at"`
}

// ResultPublisher отправляет события о результатах сессий.
type ResultPublisher interface {
	PublishSessionCompleted(ctx context.Context, event SessionCompletedEvent) error
}

// rabbitMQResultPublisher публикует события в durable-очередь RabbitMQ.
type rabbitMQResultPublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewRabbitMQResultPublisher объявляет очередь и возвращает издателя.
// Канал открывается и закрывается вызывающим кодом.
func NewRabbitMQResultPublisher(ch *amqp.Channel, queueName string, logger *zap.Logger) (ResultPublisher, error) {
	if ch == nil {
		return nil, fmt.Errorf("rabbitmq channel is nil")
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare queue %q: %w", queueName, err)
	}
	logger.Info("Session events queue declared", zap.String("queue", queueName))
	return &rabbitMQResultPublisher{channel: ch, queueName: queueName, logger: logger.Named("result_publisher")}, nil
}

func (p *rabbitMQResultPublisher) PublishSessionCompleted(ctx context.Context, event SessionCompletedEvent) error {
	if event.Type == "" {
		event.Type = EventSessionCompleted
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal session event %s: %w", event.SessionID, err)
	}

	err = p.channel.PublishWithContext(ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
			AppId:        "decision-server",
			Type:         event.Type,
			MessageId:    event.SessionID + "-completed",
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish session event", zap.String("session_id", event.SessionID), zap.Error(err))
		return fmt.Errorf("failed to publish session event %s: %w", event.SessionID, err)
	}
	p.logger.Debug("Session event published", zap.String("session_id", event.SessionID), zap.String("queue", p.queueName))
	return nil
}

type noopResultPublisher struct{}

// NewNoopResultPublisher - издатель, который ничего не отправляет (RABBITMQ_URL не задан).
func NewNoopResultPublisher() ResultPublisher {
	return noopResultPublisher{}
}

func (noopResultPublisher) PublishSessionCompleted(context.Context, SessionCompletedEvent) error {
	return nil
}
