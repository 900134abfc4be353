package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	// Storage selects the data layer: "postgres" or "memory".
	Storage    string     `env:"STORAGE" env-default:"postgres" yaml:"storage"`
	Server     Server     `yaml:"server"`
	Logger     Logger     `yaml:"logger"`
	PostgresDB PostgresDB `yaml:"db"`
	Auth       Auth       `yaml:"auth"`
	RedisCache RedisCache `yaml:"rdb"`
	Images     Images     `yaml:"images"`
}

type Server struct {
	Addr           string        `env-default:":8080"   yaml:"addr"`
	BaseURL        string        `env-default:"/v1"     yaml:"baseURL"`
	ReadTimeout    time.Duration `env-default:"10s"     yaml:"readTimeout"`
	IdleTimeout    time.Duration `env-default:"30s"     yaml:"idleTimeout"`
	WriteTimeout   time.Duration `env-default:"10s"     yaml:"writeTimeout"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
	MaxBodySize    int64         `env-default:"1048576" yaml:"maxBodySize"`
	MaxUploadSize  int64         `env-default:"5242880" yaml:"maxUploadSize"`
	MediaURL       string        `env-default:"/media/" yaml:"mediaURL"`
}

type Logger struct {
	Level     string   `env-default:"info" yaml:"level"`
	Output    []string `yaml:"output"`
	ErrOutput []string `yaml:"errOutput"`
}

type PostgresDB struct {
	Addr          string `yaml:"addr"`
	Username      string `env:"POSTGRES_USER"     yaml:"username"`
	Password      string `env:"POSTGRES_PASSWORD" yaml:"password"`
	DB            string `env:"POSTGRES_DB"       yaml:"db"`
	SSLmode       string `env-default:"disable"   yaml:"sslmode"`
	MaxConns      string `env-default:"10"        yaml:"maxConns"`
	Reload        bool   `yaml:"reload"`
	Version       int    `yaml:"version"`
	MigrationsDir string `env-default:"./migrations" yaml:"migrationsDir"`
}

// ConnString is the pgx pool DSN.
func (p PostgresDB) ConnString() string {
	return "postgres://" + p.Username + ":" + p.Password + "@" +
		p.Addr + "/" + p.DB + "?" + "sslmode=" + p.SSLmode + "&pool_max_conns=" + p.MaxConns
}

type Auth struct {
	TTL        time.Duration `env-default:"24h"       yaml:"ttl"`
	Secret     string        `env:"SECRET"            yaml:"secret"`
	LoginRate  float64       `env-default:"0.5"       yaml:"loginRate"`
	LoginBurst int           `env-default:"10"        yaml:"loginBurst"`
}

type RedisCache struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	ExpTime  time.Duration `env-default:"5m" yaml:"exp"`
}

type Images struct {
	Driver    string `env-default:"local"          yaml:"driver"`
	LocalDir  string `env-default:"./media"        yaml:"localDir"`
	Bucket    string `yaml:"bucket"`
	Region    string `env-default:"us-east-1"      yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `env:"S3_ACCESS_KEY"          yaml:"accessKey"`
	SecretKey string `env:"S3_SECRET_KEY"          yaml:"secretKey"`
}

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

var ErrInvalid = errors.New("invalid config")

func New(configPath string) (Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return Config{}, fmt.Errorf("read config error: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the cross-field requirements cleanenv tags can't express.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.PostgresDB.Username == "" || c.PostgresDB.DB == "" {
			return fmt.Errorf("%w: db.username and db.db are required for postgres storage", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown storage %q", ErrInvalid, c.Storage)
	}

	switch c.Images.Driver {
	case "local":
	case "s3":
		if c.Images.Bucket == "" {
			return fmt.Errorf("%w: images.bucket is required for s3", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown images driver %q", ErrInvalid, c.Images.Driver)
	}

	if c.Auth.Secret == "" {
		return fmt.Errorf("%w: auth.secret is required", ErrInvalid)
	}

	return nil
}
