package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestEnsureTopicRejectsEmptyBrokerList(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := EnsureTopic(ctx, nil, "allowly.notify.u1", zap.NewNop())
	assert.ErrorContains(t, err, "no kafka brokers")
}

func TestKafkaTopicNaming(t *testing.T) {
	k := NewKafka(KafkaConfig{TopicPrefix: "allowly.notify"}, zap.NewNop())
	assert.Equal(t, "allowly.notify.u1", k.topic("u1"))

	bare := NewKafka(KafkaConfig{}, zap.NewNop())
	assert.Equal(t, "u1", bare.topic("u1"))
}
