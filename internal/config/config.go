package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DB      DBConfig      `mapstructure:"db"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Storage StorageConfig `mapstructure:"storage"`
	AppHost string        `mapstructure:"host"`
}

type DBConfig struct {
	Source string `mapstructure:"source"`
}

type JWTConfig struct {
	Secret        string `mapstructure:"secret"`
	Algorithm     string `mapstructure:"algorithm"`
	ExpireMinutes int    `mapstructure:"expire_minutes"`
}

type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// TokenTTL przelicza skonfigurowaną ważność tokenu na time.Duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.ExpireMinutes) * time.Minute
}

func Load() (*Config, error) {
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/configs")
	viper.SetConfigName("settings")
	viper.SetConfigType("yml")

	viper.SetDefault("jwt.algorithm", "HS256")
	viper.SetDefault("jwt.expire_minutes", 30)
	viper.SetDefault("host", ":8080")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var hmacAlgorithms = map[string]bool{
	"HS256": true,
	"HS384": true,
	"HS512": true,
}

// Validate odrzuca konfigurację niekompletną albo wewnętrznie sprzeczną.
// Serwer nie może wystartować z niepoprawnym configiem.
func (c *Config) Validate() error {
	if c.DB.Source == "" {
		return fmt.Errorf("db.source is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if !hmacAlgorithms[c.JWT.Algorithm] {
		return fmt.Errorf("jwt.algorithm must be one of HS256, HS384, HS512, got %q", c.JWT.Algorithm)
	}
	if c.JWT.ExpireMinutes <= 0 {
		return fmt.Errorf("jwt.expire_minutes must be positive, got %d", c.JWT.ExpireMinutes)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	return nil
}
