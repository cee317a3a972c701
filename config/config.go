package config

import (
	"log/slog"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ClientConfig struct {
	Environment string `mapstructure:"environment"`
	SettleDelay string `mapstructure:"settle_delay"`
}

type TimeoutConfig struct {
	Request      string `mapstructure:"request"`
	PingInterval string `mapstructure:"ping_interval"`
	ServerTTL    string `mapstructure:"server_ttl"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Client   ClientConfig  `mapstructure:"client"`
	Timeouts TimeoutConfig `mapstructure:"timeouts"`
	Servers  []string      `mapstructure:"servers"`
	Logging  LoggingConfig `mapstructure:"logging"`
}

func Load() (*Config, error) {
	viper.SetDefault("client.environment", EnvDev)
	viper.SetDefault("client.settle_delay", "100ms")
	viper.SetDefault("timeouts.request", "3s")
	viper.SetDefault("timeouts.ping_interval", "2s")
	viper.SetDefault("timeouts.server_ttl", "6s")
	viper.SetDefault("logging.level", LogLevelInfo)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Client,
			validation.Required,
			validation.By(func(value interface{}) error {
				cc, ok := value.(ClientConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ClientConfig")
				}
				return validation.ValidateStruct(&cc,
					validation.Field(&cc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&cc.SettleDelay,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Timeouts,
			validation.Required,
			validation.By(func(value interface{}) error {
				tc, ok := value.(TimeoutConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a TimeoutConfig")
				}
				return validation.ValidateStruct(&tc,
					validation.Field(&tc.Request,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&tc.PingInterval,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&tc.ServerTTL,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Servers,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(validateHostPort)),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}
