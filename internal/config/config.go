// Package config loads presenced's runtime configuration from a YAML/JSON
// file plus environment overrides.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable named in the external interfaces section: the
// default block-list policy, group-name limits, pump cadence, token
// lifetimes, the switchboard address table, and storage locations.
type Config struct {
	Listen string `mapstructure:"listen"`

	DefaultBLP         string        `mapstructure:"default_blp"`
	MaxGroupNameLength int           `mapstructure:"max_group_name_length"`
	PumpInterval       time.Duration `mapstructure:"pump_interval"`
	PumpBatchSize      int           `mapstructure:"pump_batch_size"`

	LoginTokenLifetime time.Duration `mapstructure:"login_token_lifetime"`
	RSTTokenLifetime   time.Duration `mapstructure:"rst_token_lifetime"`
	CallTokenLifetime  time.Duration `mapstructure:"call_token_lifetime"`

	Switchboard SwitchboardAddress `mapstructure:"switchboard"`

	MySQLDSN string `mapstructure:"mysql_dsn"`
	OIMRoot  string `mapstructure:"oim_root"`
	DPRoot   string `mapstructure:"dp_root"`
}

// SwitchboardAddress is the host/port pair handed to clients minting an
// sb/xfr token (spec §4.7).
type SwitchboardAddress struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

func defaults() *Config {
	return &Config{
		Listen:             ":1863",
		DefaultBLP:         "AL",
		MaxGroupNameLength: 61,
		PumpInterval:       time.Second,
		PumpBatchSize:      100,
		LoginTokenLifetime: 30 * time.Second,
		RSTTokenLifetime:   86400 * time.Second,
		CallTokenLifetime:  30 * time.Second,
		Switchboard:        SwitchboardAddress{Host: "127.0.0.1", Port: 1864},
		MySQLDSN:           "presenced:presenced@tcp(127.0.0.1:3306)/presenced?parseTime=true",
		OIMRoot:            "storage/oim",
		DPRoot:             "storage/dp",
	}
}

// Load reads configName (without extension) from configDir, falling back to
// built-in defaults for anything unset, and allows PRESENCED_-prefixed
// environment variables to override any key.
func Load(configDir, configName string) (*Config, error) {
	cfg := defaults()

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("presenced")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setViperDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setViperDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("listen", cfg.Listen)
	v.SetDefault("default_blp", cfg.DefaultBLP)
	v.SetDefault("max_group_name_length", cfg.MaxGroupNameLength)
	v.SetDefault("pump_interval", cfg.PumpInterval)
	v.SetDefault("pump_batch_size", cfg.PumpBatchSize)
	v.SetDefault("login_token_lifetime", cfg.LoginTokenLifetime)
	v.SetDefault("rst_token_lifetime", cfg.RSTTokenLifetime)
	v.SetDefault("call_token_lifetime", cfg.CallTokenLifetime)
	v.SetDefault("switchboard.host", cfg.Switchboard.Host)
	v.SetDefault("switchboard.port", cfg.Switchboard.Port)
	v.SetDefault("mysql_dsn", cfg.MySQLDSN)
	v.SetDefault("oim_root", cfg.OIMRoot)
	v.SetDefault("dp_root", cfg.DPRoot)
}
