// Command light-relay carries a daily lighting schedule from browser clients
// to a relay. The publisher accepts schedules over WebSocket and republishes
// them to MQTT; the bridge subscribes, evaluates the schedule on a fixed
// cadence and sends ON/OFF commands to the actuator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/light-relay/internal/config"
	"github.com/sweeney/light-relay/internal/logging"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	rootCmd = &cobra.Command{
		Use:           "light-relay",
		Short:         "Relay a lighting schedule from the web to an Arduino relay",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	bridgeCmd = &cobra.Command{
		Use:   "bridge",
		Short: "Subscribe to schedules and drive the actuator",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runBridge(cfg)
		},
	}

	publisherCmd = &cobra.Command{
		Use:   "publisher",
		Short: "Accept schedules over WebSocket and publish them to MQTT",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return runPublisher(ctx, cfg)
		},
	}

	printConfigCmd = &cobra.Command{
		Use:   "print-config",
		Short: "Print the effective configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("fatal")
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to configuration file")
	rootCmd.AddCommand(bridgeCmd, publisherCmd, printConfigCmd)
}

// loadConfig reads the configuration and sets up logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Log.Level, cfg.Log.JSON, cfg.Log.UseColors())
	return cfg, nil
}
