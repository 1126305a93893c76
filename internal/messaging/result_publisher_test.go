package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNoopResultPublisher(t *testing.T) {
	assert.NoError(t, NewNoopResultPublisher().PublishSessionCompleted(context.Background(), SessionCompletedEvent{SessionID: "x"}))
}

func TestNewRabbitMQResultPublisherRequiresChannel(t *testing.T) {
	_, err := NewRabbitMQResultPublisher(nil, "q", zap.NewNop())
	assert.Error(t, err)
}
