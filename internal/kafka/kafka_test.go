package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestTopicsReady(t *testing.T) {
	require.True(t, topicsReady(nil))
	require.True(t, topicsReady(map[string]error{"renders": nil, "other": kafkago.TopicAlreadyExists}))
	require.False(t, topicsReady(map[string]error{"renders": errors.New("broker gone")}))
}

func TestWaitKafkaReady_Cancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := WaitKafkaReady(ctx, "127.0.0.1:1", 10*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
