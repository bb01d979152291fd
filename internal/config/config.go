package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. MICROSCOPE_MQTT_BROKER.
const EnvPrefix = "MICROSCOPE"

// Config is the resolved process configuration.
type Config struct {
	Port         string
	LogLevel     string
	DBPath       string
	RestoreState bool

	Auth    AuthConfig
	MQTT    MQTTConfig
	Console ConsoleConfig
	WS      WSConfig
}

type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
}

// MQTTConfig is disabled when Broker is empty.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	Heartbeat   time.Duration
}

type ConsoleConfig struct {
	HistoryFile string
	Verbose     bool
}

// WSConfig restricts browser origins allowed on /ws; empty allows any.
type WSConfig struct {
	AllowedOrigins []string
}

var defaults = map[string]any{
	"port":                 "8080",
	"log.level":            "info",
	"db.path":              "microscope.db",
	"state.restore":        false,
	"auth.signing_key":     "",
	"auth.token_ttl":       time.Hour,
	"mqtt.broker":          "",
	"mqtt.client_id":       "digital-microscope",
	"mqtt.topic_prefix":    "microscope",
	"mqtt.heartbeat":       10 * time.Second,
	"console.history_file": ".microscope_history",
	"console.verbose":      false,
	"ws.allowed_origins":   []string{},
}

// flag name -> config key
var flagKeys = map[string]string{
	"port":        "port",
	"log-level":   "log.level",
	"db-path":     "db.path",
	"restore":     "state.restore",
	"mqtt-broker": "mqtt.broker",
	"verbose":     "console.verbose",
}

// NewFlagSet returns the command-line flags understood by Load.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to the config file (default configs/config.yml)")
	fs.String("port", "", "HTTP listen port")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.String("db-path", "", "SQLite database file")
	fs.Bool("restore", false, "restore the last saved device state at startup")
	fs.String("mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")
	fs.BoolP("verbose", "v", false, "print exit codes of failed commands")
	fs.StringArrayP("command", "c", nil, "command line for exec; repeat to run a script")
	return fs
}

// Load resolves the configuration from defaults, the config file, the
// environment and the already parsed flags, in increasing priority. A
// missing config file is not an error.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	path := ""
	if fs != nil {
		path, _ = fs.GetString("config")
	}
	if err := readConfigFile(v, path); err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:         v.GetString("port"),
		LogLevel:     v.GetString("log.level"),
		DBPath:       v.GetString("db.path"),
		RestoreState: v.GetBool("state.restore"),
		Auth: AuthConfig{
			SigningKey: v.GetString("auth.signing_key"),
			TokenTTL:   v.GetDuration("auth.token_ttl"),
		},
		MQTT: MQTTConfig{
			Broker:      v.GetString("mqtt.broker"),
			ClientID:    v.GetString("mqtt.client_id"),
			TopicPrefix: v.GetString("mqtt.topic_prefix"),
			Heartbeat:   v.GetDuration("mqtt.heartbeat"),
		},
		Console: ConsoleConfig{
			HistoryFile: v.GetString("console.history_file"),
			Verbose:     v.GetBool("console.verbose"),
		},
		WS: WSConfig{
			AllowedOrigins: v.GetStringSlice("ws.allowed_origins"),
		},
	}
	return cfg, cfg.validate()
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.AddConfigPath("configs") // configs/config.yml
	v.SetConfigName("config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("auth.token_ttl must not be negative, got %s", c.Auth.TokenTTL)
	}
	if c.MQTT.Broker != "" && c.MQTT.ClientID == "" {
		return errors.New("mqtt.client_id is required when mqtt.broker is set")
	}
	return nil
}
