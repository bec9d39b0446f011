package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/safar/storefront/internal/logging"
)

// Router runs one consumer per registered queue on a shared channel.
type Router struct {
	ch           *amqp.Channel
	prefetch     int
	callTimeout  time.Duration
	requeueOnErr bool
	logger       *slog.Logger

	registrations []registration
	wg            sync.WaitGroup
}

type registration struct {
	queueName   string
	handler     Handler
	consumerTag string
}

type RouterOption func(*Router)

func WithPrefetch(n int) RouterOption          { return func(r *Router) { r.prefetch = n } }
func WithTimeout(d time.Duration) RouterOption { return func(r *Router) { r.callTimeout = d } }
func WithRequeue(b bool) RouterOption          { return func(r *Router) { r.requeueOnErr = b } }

func NewRouter(ch *amqp.Channel, opts ...RouterOption) *Router {
	r := &Router{
		ch:           ch,
		prefetch:     20,
		callTimeout:  10 * time.Second,
		requeueOnErr: true,
		logger:       logging.New("notify-router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Register(queueName string, h Handler) {
	r.registrations = append(r.registrations, registration{
		queueName:   queueName,
		handler:     h,
		consumerTag: "c_" + queueName,
	})
}

// Start begins consuming and returns immediately. Consumers stop when the
// channel closes; Wait blocks until they have.
func (r *Router) Start() error {
	if err := r.ch.Qos(r.prefetch, 0, false); err != nil {
		return err
	}

	for _, reg := range r.registrations {
		deliveries, err := r.ch.Consume(
			reg.queueName,
			reg.consumerTag,
			false, // manual ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return err
		}

		r.wg.Add(1)
		go r.consume(reg, deliveries)
	}

	return nil
}

func (r *Router) consume(reg registration, msgs <-chan amqp.Delivery) {
	defer r.wg.Done()
	l := r.logger.With("queue", reg.queueName, "tag", reg.consumerTag)

	for d := range msgs {
		ctx, cancel := context.WithTimeout(logging.WithCtx(context.Background(), l), r.callTimeout)
		err := reg.handler.Handle(ctx, d)
		cancel()

		if err == nil {
			_ = d.Ack(false)
			continue
		}

		requeue := r.requeueOnErr && !errors.Is(err, ErrMalformedMessage)
		l.Error("handler failed", "message_id", d.MessageId, "routing_key", d.RoutingKey,
			"requeue", requeue, "error", err)
		_ = d.Nack(false, requeue)
	}

	l.Info("consumer stopped")
}

func (r *Router) Wait() {
	r.wg.Wait()
}
