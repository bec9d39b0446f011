package main

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/safar/storefront/internal/logging"
	"github.com/safar/storefront/internal/notify"
	"github.com/urfave/cli/v2"
)

func notifierCommand() *cli.Command {
	return &cli.Command{
		Name:  "notifier",
		Usage: "consume account events and send welcome mail",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "prefetch", Value: 20, Usage: "unacknowledged deliveries per consumer"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := setup("storefront-notifier")
			if err != nil {
				return err
			}
			log := logging.New("notifier")

			conn, err := amqp.Dial(cfg.Rabbit.URL)
			if err != nil {
				return fmt.Errorf("connect rabbitmq: %w", err)
			}
			defer conn.Close()

			ch, err := conn.Channel()
			if err != nil {
				return fmt.Errorf("open channel: %w", err)
			}
			if err := notify.Declare(ch, cfg.Rabbit.Exchange, cfg.Rabbit.Queue); err != nil {
				return err
			}

			h := notify.NewAccountCreatedHandler(notify.NewLogMailer())
			router := notify.NewRouter(ch, notify.WithPrefetch(c.Int("prefetch")))
			router.Register(cfg.Rabbit.Queue, notify.JSONHandler[notify.AccountCreatedMsg]{HandleFunc: h.HandleAccountCreated})

			if err := router.Start(); err != nil {
				return fmt.Errorf("start consumers: %w", err)
			}
			log.Info("consuming", "queue", cfg.Rabbit.Queue)

			<-c.Context.Done()
			log.Info("shutting down")
			_ = ch.Close()
			router.Wait()
			return nil
		},
	}
}
