package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/saransh1220/talentbook/internal/shared/infrastructure/database"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig            `mapstructure:"server"`
	Database      database.PostgresConfig `mapstructure:"db"`
	Store         StoreConfig             `mapstructure:"store"`
	Redis         database.RedisConfig    `mapstructure:"redis"`
	JWT           JWTConfig               `mapstructure:"jwt"`
	Notifications NotificationsConfig     `mapstructure:"notifications"`
	Kafka         KafkaConfig             `mapstructure:"kafka"`
	Media         MediaConfig             `mapstructure:"media"`
	Log           LogConfig               `mapstructure:"log"`
	Migrations    MigrationsConfig        `mapstructure:"migrations"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	AllowedOrigins  string        `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects the notification store. Driver is "postgres" or "sqlite".
type StoreConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type NotificationsConfig struct {
	BatchMode         string        `mapstructure:"batch_mode"`
	RetentionEnabled  bool          `mapstructure:"retention_enabled"`
	RetentionDays     int           `mapstructure:"retention_days"`
	RetentionInterval time.Duration `mapstructure:"retention_interval"`
	UnreadCacheTTL    time.Duration `mapstructure:"unread_cache_ttl"`
}

type KafkaConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	GroupID       string   `mapstructure:"group_id"`
	FromBeginning bool     `mapstructure:"from_beginning"`
}

// MediaConfig holds S3/MinIO settings for the presigned upload flow.
type MediaConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Bucket         string        `mapstructure:"bucket"`
	Region         string        `mapstructure:"region"`
	Endpoint       string        `mapstructure:"endpoint"`
	PublicEndpoint string        `mapstructure:"public_endpoint"`
	AccessKey      string        `mapstructure:"access_key"`
	SecretKey      string        `mapstructure:"secret_key"`
	UseSSL         bool          `mapstructure:"use_ssl"`
	UploadTTL      time.Duration `mapstructure:"upload_ttl"`
	DownloadTTL    time.Duration `mapstructure:"download_ttl"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Pretty  bool   `mapstructure:"pretty"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type MigrationsConfig struct {
	Auto bool   `mapstructure:"auto"`
	Path string `mapstructure:"path"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// legacy env names kept working alongside the derived SECTION_KEY form
var aliases = map[string]string{
	"server.port":            "PORT",
	"server.allowed_origins": "ALLOWED_ORIGINS",
	"media.bucket":           "S3_BUCKET",
	"media.region":           "S3_REGION",
	"media.endpoint":         "S3_ENDPOINT",
	"media.public_endpoint":  "S3_PUBLIC_ENDPOINT",
	"media.access_key":       "S3_ACCESS_KEY",
	"media.secret_key":       "S3_SECRET_KEY",
	"media.use_ssl":          "S3_USE_SSL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowed_origins", "http://localhost:4200")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "20s")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "talentbook")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")

	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("store.sqlite_path", "talentbook.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret", "default-dev-secret")

	v.SetDefault("notifications.batch_mode", "atomic")
	v.SetDefault("notifications.retention_enabled", true)
	v.SetDefault("notifications.retention_days", 30)
	v.SetDefault("notifications.retention_interval", "24h")
	v.SetDefault("notifications.unread_cache_ttl", "5m")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "talentbook.workflow-events")
	v.SetDefault("kafka.group_id", "talentbook-notifications")
	v.SetDefault("kafka.from_beginning", false)

	v.SetDefault("media.enabled", false)
	v.SetDefault("media.bucket", "")
	v.SetDefault("media.region", "us-east-1")
	v.SetDefault("media.endpoint", "")
	v.SetDefault("media.public_endpoint", "")
	v.SetDefault("media.access_key", "")
	v.SetDefault("media.secret_key", "")
	v.SetDefault("media.use_ssl", true)
	v.SetDefault("media.upload_ttl", "15m")
	v.SetDefault("media.download_ttl", "1h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.env", "dev")
	v.SetDefault("log.version", "dev")

	v.SetDefault("migrations.auto", false)
	v.SetDefault("migrations.path", "migrations")
}

// Load reads defaults, then the YAML file named by CONFIG_FILE if set, then the
// environment. Environment keys are the config path upper-cased with "." as "_",
// e.g. NOTIFICATIONS_RETENTION_DAYS.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range aliases {
		derived := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, derived, env); err != nil {
			return Config{}, err
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

// Validate rejects settings the application cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverPostgres:
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	switch c.Notifications.BatchMode {
	case "atomic", "partial":
	default:
		errs = append(errs, fmt.Errorf("unknown batch mode %q", c.Notifications.BatchMode))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		errs = append(errs, errors.New("kafka.brokers and kafka.topic are required when kafka is enabled"))
	}
	if c.Media.Enabled && c.Media.Bucket == "" {
		errs = append(errs, errors.New("media.bucket is required when media is enabled"))
	}
	return errors.Join(errs...)
}
