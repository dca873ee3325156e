package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/light-relay/internal/actuator"
	"github.com/sweeney/light-relay/internal/config"
	"github.com/sweeney/light-relay/internal/ingest"
	"github.com/sweeney/light-relay/internal/logic"
	"github.com/sweeney/light-relay/internal/mqtt"
	"github.com/sweeney/light-relay/internal/status"
	"github.com/sweeney/light-relay/internal/web"
)

func runBridge(cfg *config.Config) error {
	// Initialize actuator. Live sinks that cannot be opened are fatal.
	sinkCfg := sinkConfig(cfg)
	sink, err := actuator.New(sinkCfg)
	if err != nil {
		return fmt.Errorf("init actuator: %w", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.Warn().Err(err).Msg("close actuator")
		}
	}()
	log.Info().Str("mode", sinkCfg.Mode).Str("target", sinkTarget(sinkCfg)).Msg("actuator ready")

	clock := logic.NewClock(time.Now, cfg.Bridge.Granularity.Duration())
	store := logic.NewStore()
	eval := logic.NewEvaluator(store, sink, logic.Options{
		Refire:      cfg.Bridge.Refire,
		Granularity: clock.Granularity(),
	})

	// Initialize status tracker (before STARTUP so snapshot is available)
	httpAddr := cfg.Bridge.HTTPAddr()
	tracker := status.NewTracker(clock.Now(), status.Config{
		TickMs:      cfg.Bridge.TickInterval.Duration().Milliseconds(),
		HeartbeatMs: cfg.Bridge.HeartbeatInterval().Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		Topic:       cfg.MQTT.Topic,
		SinkMode:    sinkCfg.Mode,
		SinkTarget:  sinkTarget(sinkCfg),
		Refire:      cfg.Bridge.Refire,
		HTTPAddr:    httpAddr,
	})

	// Initialize MQTT
	client, err := mqtt.NewClient(mqttOptions(cfg, "bridge"))
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer client.Close()

	if err := client.Subscribe(scheduleHandler(ingest.New(store), tracker, clock)); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	tracker.SetMQTTConnected(client.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.EventStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
	}
	if err := client.PublishSystem(startupEvent); err != nil {
		log.Warn().Err(err).Msg("failed to publish startup event")
	} else {
		log.Info().Msg("published startup event")
	}

	// Start HTTP status server
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Duration())
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Warn().Err(err).Msg("shutdown http server")
			}
		}()
		log.Info().Str("addr", httpAddr).Msg("http status server listening")
	}

	log.Info().
		Dur("tick", cfg.Bridge.TickInterval.Duration()).
		Dur("granularity", cfg.Bridge.Granularity.Duration()).
		Bool("refire", cfg.Bridge.Refire).
		Str("broker", cfg.MQTT.Broker).
		Str("topic", cfg.MQTT.Topic).
		Msg("bridge started, waiting for schedule updates")

	ticker := time.NewTicker(cfg.Bridge.TickInterval.Duration())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return runLoop(eval, clock, client, client, tracker, cfg.Bridge.HeartbeatInterval(), ticker.C, sigCh)
}

// scheduleHandler feeds broker messages through ingest. Rejected payloads
// are logged and counted; the stored schedule is left as it was.
func scheduleHandler(in *ingest.Ingest, tracker *status.Tracker, clock *logic.Clock) mqtt.Handler {
	return func(payload []byte) {
		u, err := in.Submit(payload)
		if err != nil {
			tracker.Reject()
			log.Warn().Err(err).Bytes("payload", payload).Msg("rejected schedule")
			return
		}
		tracker.SetSchedule(u.Schedule)
		log.Info().
			Str("on_time", u.Schedule.On.String()).
			Str("off_time", u.Schedule.Off.String()).
			Str("current_time", clock.TimeOfDay().String()).
			Str("id", u.ID).
			Msg("new schedule received")
	}
}

func runLoop(eval *logic.Evaluator, clock *logic.Clock, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, tick <-chan time.Time, sig <-chan os.Signal) error {
	hb := logic.NewHeartbeat(heartbeat, clock.Now())

	for {
		select {
		case s := <-sig:
			log.Info().Stringer("signal", s).Msg("shutting down")
			reason := signalName(s)
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  snap.Now,
				Event:      mqtt.EventShutdown,
				Reason:     reason,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, mqtt.EventShutdown, reason),
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Warn().Err(err).Msg("failed to publish shutdown event")
			} else {
				log.Info().Msg("published shutdown event")
			}
			return nil

		case <-tick:
			t := clock.Now()
			now := clock.Sample(t)
			res := eval.Tick(now)

			switch {
			case res.Err != nil:
				// Don't stop ticking on sink failure; the next tick on the
				// boundary retries.
				log.Error().Err(res.Err).Str("command", string(res.Command)).Str("time", now.String()).Msg("command failed")
			case res.Command != logic.StateUnknown:
				log.Info().Str("command", string(res.Command)).Str("time", now.String()).Msg("command sent")
			default:
				log.Debug().Str("time", now.String()).Bool("scheduled", res.Scheduled).Msg("tick")
			}

			tracker.Update(eval.LastAsserted(), eval.Counts(), now)
			tracker.SetMQTTConnected(mqttStatus.IsConnected())

			if hbData := hb.Check(t); hbData != nil {
				counts := eval.Counts()
				log.Info().
					Dur("uptime", hbData.Uptime).
					Int("on", counts.On).
					Int("off", counts.Off).
					Int("failures", counts.Failures).
					Msg("heartbeat")

				snap := tracker.Snapshot()
				hbEvent := mqtt.SystemEvent{
					Timestamp:  hbData.Timestamp,
					Event:      mqtt.EventHeartbeat,
					RawPayload: status.FormatStatusEvent(snap, mqtt.EventHeartbeat, ""),
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Warn().Err(err).Msg("heartbeat publish error")
				}
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

func sinkConfig(cfg *config.Config) actuator.Config {
	return actuator.Config{
		Mode:         cfg.Actuator.Mode,
		Port:         cfg.Actuator.Port,
		Baud:         cfg.Actuator.Baud,
		Settle:       cfg.Actuator.SettleDelay(),
		WriteTimeout: cfg.Actuator.WriteTimeout.Duration(),
		Chip:         cfg.Actuator.GPIOChip,
		Line:         cfg.Actuator.Line(),
		ActiveLow:    cfg.Actuator.ActiveLow,
	}
}

// sinkTarget describes the device a sink drives, empty when simulated.
func sinkTarget(c actuator.Config) string {
	switch c.Mode {
	case actuator.ModeSerial:
		return c.Port
	case actuator.ModeGPIO:
		return fmt.Sprintf("%s:%d", c.Chip, c.Line)
	default:
		return ""
	}
}

func mqttOptions(cfg *config.Config, role string) mqtt.Options {
	clientID := cfg.MQTT.ClientID
	if clientID == "" {
		clientID = "light-relay-" + role + "-" + uuid.NewString()[:8]
	}
	return mqtt.Options{
		Broker:      cfg.MQTT.Broker,
		ClientID:    clientID,
		Topic:       cfg.MQTT.Topic,
		SystemTopic: cfg.MQTT.SystemTopic,
		QoS:         cfg.MQTT.QoSLevel(),
		Retain:      cfg.MQTT.Retained(),
	}
}
