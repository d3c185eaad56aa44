package service

import (
	"context"

	"go.uber.org/zap"
)

// Publisher delivers domain events to downstream consumers.  Delivery is
// best effort: a failed publish is logged and never affects the caller.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event interface{}) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, interface{}) error { return nil }

// NopPublisher returns a Publisher that drops every event.
func NopPublisher() Publisher { return nopPublisher{} }

func publish(ctx context.Context, p Publisher, log *zap.Logger, key string, event interface{}) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, key, event); err != nil {
		log.Warn("publish event failed", zap.String("routing_key", key), zap.Error(err))
	}
}
