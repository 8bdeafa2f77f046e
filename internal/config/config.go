package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Values of storage.backend.
const (
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	Storage  StorageConfig  `mapstructure:"storage"`
	JWT      JWTConfig      `mapstructure:"jwt"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	// CookieSecure marks the session cookie Secure. Turn off only for plain-HTTP local runs.
	CookieSecure bool `mapstructure:"cookie_secure"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// StorageConfig selects the object-storage backend and the URL lifetimes the gateway hands out.
type StorageConfig struct {
	Backend         string        `mapstructure:"backend"`
	RootPrefix      string        `mapstructure:"root_prefix"`
	UploadURLExpiry time.Duration `mapstructure:"upload_url_expiry"`
	PageSize        int           `mapstructure:"page_size"`

	// Memory backend only.
	PublicURL     string `mapstructure:"public_url"`
	SigningSecret string `mapstructure:"signing_secret"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS, s3.bucket_name -> S3_BUCKET_NAME
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		// Config file is optional; defaults and env vars are enough.
		err = nil
	} else if err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}

	return config, config.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.cookie_secure", true)
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "dragbox")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("s3.use_path_style", true)
	v.SetDefault("storage.backend", BackendS3)
	v.SetDefault("storage.root_prefix", "uploads")
	v.SetDefault("storage.upload_url_expiry", "15m")
	v.SetDefault("storage.public_url", "http://localhost:8080")
	v.SetDefault("storage.signing_secret", "")
	v.SetDefault("storage.page_size", 1000)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration", "1h")
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	switch c.Storage.Backend {
	case BackendS3:
		if c.S3.BucketName == "" {
			return errors.New("s3.bucket_name is required for the s3 backend")
		}
	case BackendMemory:
		if c.Storage.PublicURL == "" {
			return errors.New("storage.public_url is required for the memory backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	if c.Storage.RootPrefix == "" || strings.Contains(c.Storage.RootPrefix, "/") {
		return fmt.Errorf("storage.root_prefix must be a single path segment, got %q", c.Storage.RootPrefix)
	}
	return nil
}
