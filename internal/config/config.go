// Package config loads supervisor settings from configs/config.yml, an
// optional .env file and SUPERVISOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"esp32_supervisor/internal/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverMQTT   = "mqtt"
)

// Sensor subscription modes.
const (
	SensorsInitial = "initial" // sensores/lecturas/inicial holds one snapshot
	SensorsLatest  = "latest"  // sensores/lecturas holds ordered children
)

const envPrefix = "SUPERVISOR"

type Config struct {
	Port      string          `mapstructure:"port"`
	LogLevel  string          `mapstructure:"log_level"`
	DB        DBConfig        `mapstructure:"db"`
	Store     StoreConfig     `mapstructure:"store"`
	Device    DeviceConfig    `mapstructure:"device"`
	Sensors   SensorsConfig   `mapstructure:"sensors"`
	Control   ControlConfig   `mapstructure:"control"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Influx    InfluxConfig    `mapstructure:"influx"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type StoreConfig struct {
	Driver string     `mapstructure:"driver"`
	MQTT   MQTTConfig `mapstructure:"mqtt"`
}

type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	QoS      int    `mapstructure:"qos"`
}

type DeviceConfig struct {
	ID string `mapstructure:"id"`
}

type SensorsConfig struct {
	Mode string `mapstructure:"mode"`
}

type ControlConfig struct {
	DefaultSetpoint int     `mapstructure:"default_setpoint"`
	HandleSizePx    float64 `mapstructure:"handle_size_px"`
}

type SimulatorConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Tick    time.Duration `mapstructure:"tick"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// InfluxConfig enables the telemetry sink when URL is set.
type InfluxConfig struct {
	URL    string `mapstructure:"url"`
	Token  string `mapstructure:"token"`
	Org    string `mapstructure:"org"`
	Bucket string `mapstructure:"bucket"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

var (
	errUnknownDriver = errors.New("store.driver must be memory or mqtt")
	errUnknownMode   = errors.New("sensors.mode must be initial or latest")
	errMissingBroker = errors.New("store.mqtt.broker is required for the mqtt driver")
	errMissingDevice = errors.New("device.id is required")
	errMissingKey    = errors.New("auth.signing_key is required")
)

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("db.path", "app.db")
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.mqtt.client_id", "esp32-supervisor")
	v.SetDefault("store.mqtt.qos", 1)
	v.SetDefault("device.id", "esp32_1")
	v.SetDefault("sensors.mode", SensorsInitial)
	v.SetDefault("control.default_setpoint", models.DefaultSetpoint)
	v.SetDefault("control.handle_size_px", 30)
	v.SetDefault("simulator.enabled", true)
	v.SetDefault("simulator.tick", time.Second)
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("influx.bucket", "esp32")
	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// Load reads .env (if present), then configs/<name>.yml from dir, then the
// environment. A missing config file is not an error.
func Load(dir, name string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.AddConfigPath(dir)
	v.SetConfigName(name)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	cfg.Sensors.Mode = strings.ToLower(strings.TrimSpace(cfg.Sensors.Mode))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverMQTT:
		if c.Store.MQTT.Broker == "" {
			return errMissingBroker
		}
	default:
		return errUnknownDriver
	}
	switch c.Sensors.Mode {
	case SensorsInitial, SensorsLatest:
	default:
		return errUnknownMode
	}
	if c.Device.ID == "" {
		return errMissingDevice
	}
	if c.Control.DefaultSetpoint < models.MinSetpoint || c.Control.DefaultSetpoint > models.MaxSetpoint {
		return fmt.Errorf("control.default_setpoint %d outside [%d, %d]", c.Control.DefaultSetpoint, models.MinSetpoint, models.MaxSetpoint)
	}
	if c.Control.HandleSizePx < 0 {
		return fmt.Errorf("control.handle_size_px must not be negative, got %.1f", c.Control.HandleSizePx)
	}
	if strings.TrimSpace(c.Auth.SigningKey) == "" {
		return errMissingKey
	}
	return nil
}
