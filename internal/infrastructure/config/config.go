package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jehnsen/coop-lending/pkg/auth"
	"github.com/jehnsen/coop-lending/pkg/kafka"
	"github.com/jehnsen/coop-lending/pkg/observability"
	"github.com/jehnsen/coop-lending/pkg/postgres"
	"github.com/jehnsen/coop-lending/pkg/tlsutil"
)

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// MembersDBConfig points at the back-office database holding members. An
// empty DSN switches to the static development directory.
type MembersDBConfig struct {
	DSN          string        `mapstructure:"dsn"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// RedisConfig configures the product cache. An empty Addr disables caching.
type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	ProductTTL time.Duration `mapstructure:"product_ttl"`
}

type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	ClientID      string   `mapstructure:"client_id"`
	TLS           bool     `mapstructure:"tls"`
	SASLMechanism string   `mapstructure:"sasl_mechanism"`
	SASLUsername  string   `mapstructure:"sasl_username"`
	SASLPassword  string   `mapstructure:"sasl_password"`
}

type OutboxConfig struct {
	BatchSize int           `mapstructure:"batch_size"`
	Interval  time.Duration `mapstructure:"interval"`
}

type SweepConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Schedule string        `mapstructure:"schedule"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	JWTSecret    string `mapstructure:"jwt_secret"`
	JWTPublicKey string `mapstructure:"jwt_public_key"`
	Issuer       string `mapstructure:"issuer"`
}

type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	Insecure     bool    `mapstructure:"insecure"`
}

// GRPCConfig holds listener options beyond the port.
type GRPCConfig struct {
	TLSCertFile     string `mapstructure:"tls_cert_file"`
	TLSKeyFile      string `mapstructure:"tls_key_file"`
	TLSClientCAFile string `mapstructure:"tls_client_ca_file"`
	Reflection      bool   `mapstructure:"reflection"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	ServiceName string          `mapstructure:"service_name"`
	GRPCPort    int             `mapstructure:"grpc_port"`
	HTTPPort    int             `mapstructure:"http_port"`
	GRPC        GRPCConfig      `mapstructure:"grpc"`
	DB          DatabaseConfig  `mapstructure:"db"`
	MembersDB   MembersDBConfig `mapstructure:"members_db"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Kafka       KafkaConfig     `mapstructure:"kafka"`
	Outbox      OutboxConfig    `mapstructure:"outbox"`
	Sweep       SweepConfig     `mapstructure:"sweep"`
	Auth        AuthConfig      `mapstructure:"auth"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
	Log         LogConfig       `mapstructure:"log"`
}

// Validate reports every missing or inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.DB.Password == "" {
		errs = append(errs, errors.New("DB_PASSWORD environment variable is required"))
	}
	if c.GRPCPort <= 0 || c.HTTPPort <= 0 {
		errs = append(errs, fmt.Errorf("ports must be positive (grpc %d, http %d)", c.GRPCPort, c.HTTPPort))
	}
	if c.GRPCPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("grpc and http ports must differ, both are %d", c.GRPCPort))
	}
	if c.Auth.JWTSecret == "" && c.Auth.JWTPublicKey == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET or AUTH_JWT_PUBLIC_KEY is required"))
	}
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required"))
	}
	if (c.GRPC.TLSCertFile == "") != (c.GRPC.TLSKeyFile == "") {
		errs = append(errs, errors.New("GRPC_TLS_CERT_FILE and GRPC_TLS_KEY_FILE must be set together"))
	}
	if c.Sweep.Enabled && c.Sweep.Schedule == "" {
		errs = append(errs, errors.New("SWEEP_SCHEDULE is required when the sweep is enabled"))
	}
	return errors.Join(errs...)
}

func (c Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// Postgres converts the database settings for pkg/postgres.
func (c Config) Postgres() postgres.Config {
	return postgres.Config{
		Host:           c.DB.Host,
		Port:           c.DB.Port,
		User:           c.DB.User,
		Password:       c.DB.Password,
		Database:       c.DB.Name,
		SSLMode:        c.DB.SSLMode,
		MaxConns:       c.DB.MaxConns,
		ConnectTimeout: 5 * time.Second,
	}
}

func (c Config) KafkaProducer() kafka.Config {
	return kafka.Config{
		ClientID:      c.Kafka.ClientID,
		Brokers:       c.Kafka.Brokers,
		TLS:           c.Kafka.TLS,
		SASLEnabled:   c.Kafka.SASLMechanism != "",
		SASLMechanism: c.Kafka.SASLMechanism,
		SASLUsername:  c.Kafka.SASLUsername,
		SASLPassword:  c.Kafka.SASLPassword,
		BatchTimeout:  50 * time.Millisecond,
	}
}

func (c Config) JWT() auth.JWTConfig {
	return auth.JWTConfig{
		Secret:       c.Auth.JWTSecret,
		PublicKeyPEM: c.Auth.JWTPublicKey,
		Issuer:       c.Auth.Issuer,
	}
}

func (c Config) Logging() observability.LogConfig {
	return observability.LogConfig{
		Level:       c.Log.Level,
		Format:      c.Log.Format,
		ServiceName: c.ServiceName,
	}
}

// Tracing returns an empty endpoint when tracing is disabled.
func (c Config) Tracing() observability.TracingConfig {
	return observability.TracingConfig{
		ServiceName: c.ServiceName,
		Endpoint:    c.Telemetry.OTLPEndpoint,
		SampleRatio: c.Telemetry.SampleRatio,
		Insecure:    c.Telemetry.Insecure,
	}
}

func (c Config) GRPCTLS() tlsutil.ServerConfig {
	return tlsutil.ServerConfig{
		CertFile:     c.GRPC.TLSCertFile,
		KeyFile:      c.GRPC.TLSKeyFile,
		ClientCAFile: c.GRPC.TLSClientCAFile,
	}
}
