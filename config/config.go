package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

// JWTConfig holds everything the token service needs. It is loaded once at
// startup and passed by value; nothing mutates it afterwards.
type JWTConfig struct {
	SecretKey       string        `mapstructure:"secretKey"`
	AccessTokenTTL  time.Duration `mapstructure:"accessTokenTTL"`
	RefreshTokenTTL time.Duration `mapstructure:"refreshTokenTTL"`
	Issuer          string        `mapstructure:"issuer"`
	Audience        string        `mapstructure:"audience"`
}

type Config struct {
	Mode         string `mapstructure:"mode"`
	Repositories struct {
		Postgres struct {
			Host         string        `mapstructure:"host"`
			Password     string        `mapstructure:"password"`
			Port         string        `mapstructure:"port"`
			Username     string        `mapstructure:"username"`
			DB           string        `mapstructure:"db"`
			SSLMode      string        `mapstructure:"sslmode"`
			QueryTimeout time.Duration `mapstructure:"queryTimeout"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	JWT    JWTConfig `mapstructure:"jwt"`
	Server struct {
		HTTPPort       string        `mapstructure:"HTTPPort"`
		MetricsPort    string        `mapstructure:"metricsPort"`
		Timeout        time.Duration `mapstructure:"HTTPTimeout"`
		AllowedOrigins []string      `mapstructure:"allowedOrigins"`
	} `mapstructure:"server"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Secrets come from the environment, never from the YAML file.
	v.SetEnvPrefix("RECCALC")
	v.AutomaticEnv()
	if err := v.BindEnv("jwt.secretKey", "RECCALC_JWT_SECRET"); err != nil {
		return Config{}, fmt.Errorf("failed to bind jwt secret env: %w", err)
	}
	if err := v.BindEnv("repositories.postgres.password", "RECCALC_POSTGRES_PASSWORD"); err != nil {
		return Config{}, fmt.Errorf("failed to bind postgres password env: %w", err)
	}

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.JWT.SecretKey == "" {
		return Config{}, fmt.Errorf("jwt secret key is not configured (set RECCALC_JWT_SECRET)")
	}
	return config, nil
}
