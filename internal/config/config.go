// Package config loads the service configuration from configs/config.yml,
// overridable through IRRIGATION_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Feed modes.
const (
	FeedMQTT      = "mqtt"
	FeedSimulator = "simulator"
)

const envPrefix = "IRRIGATION"

// Config is the typed view of the configuration file.
type Config struct {
	Port      string          `mapstructure:"port"`
	Log       LogConfig       `mapstructure:"log"`
	Device    DeviceConfig    `mapstructure:"device"`
	Override  OverrideConfig  `mapstructure:"override"`
	Display   DisplayConfig   `mapstructure:"display"`
	Feed      FeedConfig      `mapstructure:"feed"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Command   CommandConfig   `mapstructure:"command"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	DB        DBConfig        `mapstructure:"db"`
	WS        WSConfig        `mapstructure:"ws"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DeviceConfig struct {
	ID          string `mapstructure:"id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

type OverrideConfig struct {
	LockWindow time.Duration `mapstructure:"lock_window"`
}

type DisplayConfig struct {
	Timezone string `mapstructure:"timezone"` // IANA name, "Local" or empty for the host zone
}

type FeedConfig struct {
	Mode string `mapstructure:"mode"` // mqtt | simulator
}

type MQTTConfig struct {
	Broker         string `mapstructure:"broker"`
	ClientID       string `mapstructure:"client_id"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	QoS            int    `mapstructure:"qos"`
	ConnectRetries int    `mapstructure:"connect_retries"`
}

type CommandConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerOpen     time.Duration `mapstructure:"breaker_open"`
}

type SimulatorConfig struct {
	Tick time.Duration `mapstructure:"tick"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type WSConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

var (
	errNoDeviceID    = errors.New("device.id must not be empty")
	errBadFeedMode   = errors.New("feed.mode must be mqtt or simulator")
	errBadQoS        = errors.New("mqtt.qos must be 0, 1 or 2")
	errNoBroker      = errors.New("mqtt.broker is required in mqtt mode")
	errBadTimeout    = errors.New("command.timeout must be positive")
	errBadLockWindow = errors.New("override.lock_window must be positive")
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("device.id", "ESP32-001")
	v.SetDefault("device.topic_prefix", "devices")
	v.SetDefault("override.lock_window", "5s")
	v.SetDefault("display.timezone", "Local")
	v.SetDefault("feed.mode", FeedMQTT)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "irrigation-dashboard")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.connect_retries", 5)
	v.SetDefault("command.timeout", "5s")
	v.SetDefault("command.breaker_failures", 3)
	v.SetDefault("command.breaker_open", "30s")
	v.SetDefault("simulator.tick", "1s")
	v.SetDefault("db.path", ":memory:")
	v.SetDefault("ws.interval", "1s")
}

// Load reads config.yml from the given search paths. A missing file is not
// an error: defaults and environment variables still apply.
func Load(paths ...string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the rest of the service relies on.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Device.ID) == "" {
		return errNoDeviceID
	}
	switch c.Feed.Mode {
	case FeedMQTT:
		if c.MQTT.Broker == "" {
			return errNoBroker
		}
	case FeedSimulator:
	default:
		return errBadFeedMode
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return errBadQoS
	}
	if c.Command.Timeout <= 0 {
		return errBadTimeout
	}
	if c.Override.LockWindow <= 0 {
		return errBadLockWindow
	}
	return nil
}

// Location resolves display.timezone.
func (c Config) Location() (*time.Location, error) {
	switch c.Display.Timezone {
	case "", "Local":
		return time.Local, nil
	default:
		loc, err := time.LoadLocation(c.Display.Timezone)
		if err != nil {
			return nil, fmt.Errorf("display.timezone %q: %w", c.Display.Timezone, err)
		}
		return loc, nil
	}
}
