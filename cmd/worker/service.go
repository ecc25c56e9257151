package main

import (
	"context"

	"github.com/wb-go/wbf/retry"
)

// NoopPublisher - заглушка, воркер ничего не публикует в очередь
type NoopPublisher struct{}

func (NoopPublisher) SendWithRetry(ctx context.Context, strategy retry.Strategy, k []byte, v []byte) error {
	return nil
}
