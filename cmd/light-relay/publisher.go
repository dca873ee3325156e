package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/light-relay/internal/config"
	"github.com/sweeney/light-relay/internal/mqtt"
	"github.com/sweeney/light-relay/internal/wsapi"
)

func runPublisher(ctx context.Context, cfg *config.Config) error {
	client, err := mqtt.NewClient(mqttOptions(cfg, "publisher"))
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer client.Close()

	srv := wsapi.New(wsapi.Config{
		Addr:      cfg.Publisher.Listen,
		RateLimit: cfg.Publisher.RateLimit,
		Burst:     cfg.Publisher.Burst,
	}, client)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().
		Str("addr", cfg.Publisher.Listen).
		Str("topic", cfg.MQTT.Topic).
		Msg("websocket server started")

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("websocket server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown websocket server: %w", err)
	}
	return nil
}
