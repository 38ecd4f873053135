package config

import (
	"fmt"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type Redis struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTLSec   int    `mapstructure:"ttlSec"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type LocalBlob struct {
	Root string
}

type S3Blob struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

type Blob struct {
	Driver        string
	Containers    []string
	ArticleAssets string
	Local         LocalBlob
	S3            S3Blob
}

type Limits struct {
	RateRPS       float64
	RateBurst     int
	MaxConcurrent int64
	MaxBodyMB     int64
	TimeoutSec    int
}

type Sweep struct {
	GraceMin int
}

type Config struct {
	App    App
	Log    Log
	DB     DB
	Redis  Redis `mapstructure:"redis"`
	Blob   Blob
	Limits Limits
	Sweep  Sweep
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "content-api")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readTimeoutSec", 15)
	v.SetDefault("app.http.writeTimeoutSec", 30)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8081)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.enable", false)
	v.SetDefault("log.file.filename", "logs/content-api.log")
	v.SetDefault("log.file.maxSizeMB", 100)
	v.SetDefault("log.file.maxBackups", 5)
	v.SetDefault("log.file.maxAgeDays", 14)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 10)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", false)
	v.SetDefault("db.logLevel", "warn")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttlSec", 60)

	v.SetDefault("blob.driver", "local")
	v.SetDefault("blob.containers", []string{})
	v.SetDefault("blob.articleAssets", "article-assets")
	v.SetDefault("blob.local.root", "./data/blobs")
	v.SetDefault("blob.s3.region", "auto")
	v.SetDefault("blob.s3.endpoint", "")
	v.SetDefault("blob.s3.accessKeyID", "")
	v.SetDefault("blob.s3.secretAccessKey", "")
	v.SetDefault("blob.s3.usePathStyle", false)

	v.SetDefault("limits.rateRPS", 200)
	v.SetDefault("limits.rateBurst", 400)
	v.SetDefault("limits.maxConcurrent", 300)
	v.SetDefault("limits.maxBodyMB", 16)
	v.SetDefault("limits.timeoutSec", 10)

	v.SetDefault("sweep.graceMin", 60)
}

// Load reads the YAML file at path (or CONFIG_PATH) and applies APP_* env overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// MustLoad is Load for mains: any error is fatal.
func MustLoad(path string) *Config {
	c, err := Load(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return c
}

// Validate reports every missing or invalid setting at once and makes sure
// the article asset container is provisioned.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.DB.DSN) == "" {
		missing = append(missing, "db.dsn")
	}
	switch c.DB.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		missing = append(missing, "db.driver (postgres|mysql|sqlite)")
	}
	if strings.TrimSpace(c.Blob.ArticleAssets) == "" {
		missing = append(missing, "blob.articleAssets")
	}
	switch c.Blob.Driver {
	case "local":
		if strings.TrimSpace(c.Blob.Local.Root) == "" {
			missing = append(missing, "blob.local.root")
		}
	case "s3":
		if c.Blob.S3.AccessKeyID == "" {
			missing = append(missing, "blob.s3.accessKeyID")
		}
		if c.Blob.S3.SecretAccessKey == "" {
			missing = append(missing, "blob.s3.secretAccessKey")
		}
	default:
		missing = append(missing, "blob.driver (local|s3)")
	}
	if c.Redis.Enabled && strings.TrimSpace(c.Redis.Addr) == "" {
		missing = append(missing, "redis.addr")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configurations: %v", missing)
	}
	if !slices.Contains(c.Blob.Containers, c.Blob.ArticleAssets) {
		c.Blob.Containers = append(c.Blob.Containers, c.Blob.ArticleAssets)
	}
	return nil
}
