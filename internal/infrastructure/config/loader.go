package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// defaults lists every key so that AutomaticEnv can override it: viper only
// consults the environment for keys it already knows.
var defaults = map[string]any{
	"service_name": "lending-service",
	"grpc_port":    9087,
	"http_port":    8087,

	"grpc.tls_cert_file":      "",
	"grpc.tls_key_file":       "",
	"grpc.tls_client_ca_file": "",
	"grpc.reflection":         false,

	"db.host":      "localhost",
	"db.port":      5432,
	"db.user":      "lending",
	"db.password":  "",
	"db.name":      "coop_lending",
	"db.sslmode":   "require",
	"db.max_conns": 10,

	"members_db.dsn":           "",
	"members_db.query_timeout": "3s",
	"members_db.max_retries":   2,

	"redis.addr":        "",
	"redis.password":    "",
	"redis.db":          0,
	"redis.product_ttl": "10m",

	"kafka.brokers":        []string{"localhost:9092"},
	"kafka.topic":          "lending.events",
	"kafka.client_id":      "lending-service",
	"kafka.tls":            false,
	"kafka.sasl_mechanism": "",
	"kafka.sasl_username":  "",
	"kafka.sasl_password":  "",

	"outbox.batch_size": 100,
	"outbox.interval":   "1s",

	"sweep.enabled":  true,
	"sweep.schedule": "@daily",
	"sweep.timeout":  "30m",

	"auth.jwt_secret":     "",
	"auth.jwt_public_key": "",
	"auth.issuer":         "coop-backoffice",

	"telemetry.otlp_endpoint": "",
	"telemetry.sample_ratio":  1.0,
	"telemetry.insecure":      true,

	"log.level":  "info",
	"log.format": "json",
}

// Load reads configuration in increasing precedence: defaults, an optional
// config.yaml found in searchPaths (default "." and "./configs"), then the
// environment, where "db.password" is read from DB_PASSWORD. A .env file in
// the working directory is loaded into the environment first.
func Load(searchPaths ...string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(searchPaths) == 0 {
		searchPaths = []string{".", "./configs"}
	}
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
