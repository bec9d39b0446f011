package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrMalformedMessage marks a delivery that can never be processed. The router drops it
// instead of requeueing.
var ErrMalformedMessage = errors.New("malformed message")

// Handler processes one delivery. nil acks it, an error nacks it.
type Handler interface {
	Handle(ctx context.Context, d amqp.Delivery) error
}

// JSONHandler decodes the delivery body into T before calling HandleFunc.
type JSONHandler[T any] struct {
	HandleFunc func(ctx context.Context, msg T) error
}

func (h JSONHandler[T]) Handle(ctx context.Context, d amqp.Delivery) error {
	var v T
	if err := json.Unmarshal(d.Body, &v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	return h.HandleFunc(ctx, v)
}
