package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/safar/storefront/internal/cache"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/httpapi"
	"github.com/safar/storefront/internal/httpapi/middleware"
	"github.com/safar/storefront/internal/logging"
	"github.com/safar/storefront/internal/notify"
	"github.com/safar/storefront/internal/shop"
	"github.com/urfave/cli/v2"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "migrate", Usage: "apply pending migrations before serving"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := setup("storefront-api")
			if err != nil {
				return err
			}
			if c.Bool("migrate") {
				if err := database.Migrate(cfg.Database.URL, database.MigrateUp); err != nil {
					return err
				}
			}
			return serve(c.Context, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logging.New("serve")

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	opts := []shop.Option{
		shop.WithIdempotency(cache.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)),
	}

	// The broker is optional: registration works without it, only the welcome mail is lost.
	conn, err := amqp.Dial(cfg.Rabbit.URL)
	if err != nil {
		log.Warn("rabbitmq unavailable, account notifications disabled", "error", err)
	} else {
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			return fmt.Errorf("open channel: %w", err)
		}
		publisher, err := notify.NewPublisher(ch, cfg.Rabbit.Exchange, cfg.Rabbit.Queue)
		if err != nil {
			return err
		}
		opts = append(opts, shop.WithNotifier(publisher))
	}

	svc := shop.New(db, opts...)
	auth := middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	router := httpapi.NewRouter(httpapi.NewHandler(svc, cfg.Server.RequestTimeout), auth, logging.New("http"))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Server.Port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
