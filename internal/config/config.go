// Package config loads the light-relay configuration from YAML and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no --config is given. A missing
// default file is not an error.
const DefaultPath = "light-relay.yaml"

// Sink modes.
const (
	SinkSimulated = "simulated"
	SinkSerial    = "serial"
	SinkGPIO      = "gpio"
)

// Config is the full configuration shared by the bridge and the publisher.
type Config struct {
	MQTT            MQTTConfig      `yaml:"mqtt"`
	Actuator        ActuatorConfig  `yaml:"actuator"`
	Bridge          BridgeConfig    `yaml:"bridge"`
	Publisher       PublisherConfig `yaml:"publisher"`
	Log             LogConfig       `yaml:"log"`
	ShutdownTimeout Duration        `yaml:"shutdown_timeout"`
}

// MQTTConfig contains broker connection settings.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	Topic       string `yaml:"topic"`
	SystemTopic string `yaml:"system_topic"`
	ClientID    string `yaml:"client_id"` // empty = generated per process
	QoS         *byte  `yaml:"qos"`
	Retain      *bool  `yaml:"retain"`
}

// QoSLevel returns the schedule topic QoS (default 1).
func (c MQTTConfig) QoSLevel() byte {
	if c.QoS == nil {
		return 1
	}
	return *c.QoS
}

// Retained reports whether schedules are published with the retain flag
// (default true).
func (c MQTTConfig) Retained() bool {
	return c.Retain == nil || *c.Retain
}

// ActuatorConfig selects the command sink.
type ActuatorConfig struct {
	Mode         string    `yaml:"mode"`
	Port         string    `yaml:"port"`
	Baud         int       `yaml:"baud"`
	Settle       *Duration `yaml:"settle"` // 0 skips the wait
	WriteTimeout Duration  `yaml:"write_timeout"`
	GPIOChip     string    `yaml:"gpio_chip"`
	GPIOLine     *int      `yaml:"gpio_line"`
	ActiveLow    bool      `yaml:"active_low"`
}

// SettleDelay returns the wait after opening the serial port, default 2s.
func (c ActuatorConfig) SettleDelay() time.Duration {
	if c.Settle == nil {
		return 2 * time.Second
	}
	return c.Settle.Duration()
}

// Line returns the GPIO line offset, default 17.
func (c ActuatorConfig) Line() int {
	if c.GPIOLine == nil {
		return 17
	}
	return *c.GPIOLine
}

// BridgeConfig contains the subscriber/evaluator settings.
type BridgeConfig struct {
	TickInterval Duration  `yaml:"tick_interval"`
	Granularity  Duration  `yaml:"granularity"`
	Refire       bool      `yaml:"refire"`
	Heartbeat    *Duration `yaml:"heartbeat"` // 0 disables
	HTTP         *string   `yaml:"http"`      // "" disables
}

// HeartbeatInterval returns the heartbeat period, default 15m.
func (c BridgeConfig) HeartbeatInterval() time.Duration {
	if c.Heartbeat == nil {
		return 15 * time.Minute
	}
	return c.Heartbeat.Duration()
}

// HTTPAddr returns the status server address, default ":8080".
func (c BridgeConfig) HTTPAddr() string {
	if c.HTTP == nil {
		return ":8080"
	}
	return *c.HTTP
}

// PublisherConfig contains the websocket publisher settings.
type PublisherConfig struct {
	Listen    string  `yaml:"listen"`
	RateLimit float64 `yaml:"rate_limit"` // submissions per second per connection
	Burst     int     `yaml:"burst"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	JSON   bool   `yaml:"json"`
	Colors *bool  `yaml:"colors"`
}

// UseColors reports whether console output is colored (default true).
func (c LogConfig) UseColors() bool {
	return c.Colors == nil || *c.Colors
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Environment variables that override the file.
const (
	EnvBroker     = "LIGHT_RELAY_BROKER"
	EnvTopic      = "LIGHT_RELAY_TOPIC"
	EnvSink       = "LIGHT_RELAY_SINK"
	EnvSerialPort = "LIGHT_RELAY_SERIAL_PORT"
	EnvBaud       = "LIGHT_RELAY_BAUD"
	EnvTick       = "LIGHT_RELAY_TICK"
	EnvListen     = "LIGHT_RELAY_LISTEN"
	EnvLogLevel   = "LIGHT_RELAY_LOG_LEVEL"
)

// Load reads path (if it exists), expands ${VAR} / ${VAR:default}
// references, applies environment overrides and defaults, and validates.
// A missing file is only an error when path is not DefaultPath.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
		// defaults + environment only
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = "tcp://localhost:1883"
	}
	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "light/schedule"
	}
	if cfg.MQTT.SystemTopic == "" {
		cfg.MQTT.SystemTopic = cfg.MQTT.Topic + "/system"
	}
	if cfg.MQTT.QoS == nil {
		q := cfg.MQTT.QoSLevel()
		cfg.MQTT.QoS = &q
	}
	if cfg.MQTT.Retain == nil {
		r := cfg.MQTT.Retained()
		cfg.MQTT.Retain = &r
	}

	if cfg.Actuator.Mode == "" {
		cfg.Actuator.Mode = SinkSimulated
	}
	if cfg.Actuator.Port == "" {
		cfg.Actuator.Port = "/dev/ttyACM0"
	}
	if cfg.Actuator.Baud == 0 {
		cfg.Actuator.Baud = 9600
	}
	if cfg.Actuator.Settle == nil {
		settle := Duration(cfg.Actuator.SettleDelay())
		cfg.Actuator.Settle = &settle
	}
	if cfg.Actuator.WriteTimeout == 0 {
		cfg.Actuator.WriteTimeout = Duration(time.Second)
	}
	if cfg.Actuator.GPIOChip == "" {
		cfg.Actuator.GPIOChip = "gpiochip0"
	}
	if cfg.Actuator.GPIOLine == nil {
		line := cfg.Actuator.Line()
		cfg.Actuator.GPIOLine = &line
	}

	if cfg.Bridge.TickInterval == 0 {
		cfg.Bridge.TickInterval = Duration(30 * time.Second)
	}
	if cfg.Bridge.Granularity == 0 {
		cfg.Bridge.Granularity = Duration(time.Minute)
	}
	if cfg.Bridge.Heartbeat == nil {
		hb := Duration(cfg.Bridge.HeartbeatInterval())
		cfg.Bridge.Heartbeat = &hb
	}
	if cfg.Bridge.HTTP == nil {
		addr := cfg.Bridge.HTTPAddr()
		cfg.Bridge.HTTP = &addr
	}

	if cfg.Publisher.Listen == "" {
		cfg.Publisher.Listen = ":8767"
	}
	if cfg.Publisher.RateLimit == 0 {
		cfg.Publisher.RateLimit = 1
	}
	if cfg.Publisher.Burst == 0 {
		cfg.Publisher.Burst = 5
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Colors == nil {
		colors := cfg.Log.UseColors()
		cfg.Log.Colors = &colors
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

func applyEnv(cfg *Config) error {
	setString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	setString(EnvBroker, &cfg.MQTT.Broker)
	setString(EnvTopic, &cfg.MQTT.Topic)
	setString(EnvSink, &cfg.Actuator.Mode)
	setString(EnvSerialPort, &cfg.Actuator.Port)
	setString(EnvListen, &cfg.Publisher.Listen)
	setString(EnvLogLevel, &cfg.Log.Level)

	if v := os.Getenv(EnvBaud); v != "" {
		baud, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBaud, err)
		}
		cfg.Actuator.Baud = baud
	}
	if v := os.Getenv(EnvTick); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTick, err)
		}
		cfg.Bridge.TickInterval = Duration(d)
	}
	return nil
}

// Validate checks the configuration for values the daemons cannot run with.
func Validate(cfg *Config) error {
	switch cfg.Actuator.Mode {
	case SinkSimulated, SinkSerial, SinkGPIO:
	default:
		return fmt.Errorf("actuator.mode: unknown sink %q (want %s, %s or %s)",
			cfg.Actuator.Mode, SinkSimulated, SinkSerial, SinkGPIO)
	}
	if cfg.Actuator.Baud <= 0 {
		return fmt.Errorf("actuator.baud must be positive, got %d", cfg.Actuator.Baud)
	}
	if cfg.Actuator.SettleDelay() < 0 {
		return fmt.Errorf("actuator.settle must not be negative")
	}
	if cfg.Actuator.Line() < 0 {
		return fmt.Errorf("actuator.gpio_line must not be negative, got %d", cfg.Actuator.Line())
	}
	if cfg.Bridge.TickInterval.Duration() <= 0 {
		return fmt.Errorf("bridge.tick_interval must be positive")
	}
	g := cfg.Bridge.Granularity.Duration()
	if g < time.Minute || g%time.Minute != 0 || (24*time.Hour)%g != 0 {
		return fmt.Errorf("bridge.granularity must be whole minutes dividing a day, got %s", g)
	}
	if cfg.Bridge.HeartbeatInterval() < 0 {
		return fmt.Errorf("bridge.heartbeat must not be negative")
	}
	if q := cfg.MQTT.QoSLevel(); q > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", q)
	}
	if cfg.Publisher.RateLimit < 0 || cfg.Publisher.Burst < 0 {
		return fmt.Errorf("publisher rate limit must not be negative")
	}
	return nil
}

var envRef = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	return envRef.ReplaceAllStringFunc(input, func(match string) string {
		parts := envRef.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}
