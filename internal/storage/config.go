package storage

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	DriverLocal = "local"
	DriverMinIO = "minio"
)

// Config selects and configures the blob backend.
type Config struct {
	Driver string
	// Root is the base directory of the local driver.
	Root string
	// Prefix is the key prefix uploaded images are stored under.
	Prefix string
	MinIO  MinIOConfig
}

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// LoadConfig loads blob store settings from the environment.
func LoadConfig() *Config {
	viper.AutomaticEnv()
	viper.SetDefault("STORAGE_DRIVER", DriverLocal)
	viper.SetDefault("STORAGE_ROOT", "storage/app/public")
	viper.SetDefault("STORAGE_PREFIX", "posts")
	viper.SetDefault("MINIO_BUCKET", "postboard")

	return &Config{
		Driver: strings.ToLower(viper.GetString("STORAGE_DRIVER")),
		Root:   viper.GetString("STORAGE_ROOT"),
		Prefix: viper.GetString("STORAGE_PREFIX"),
		MinIO: MinIOConfig{
			Endpoint:  viper.GetString("MINIO_ENDPOINT"),
			AccessKey: viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey: viper.GetString("MINIO_SECRET_KEY"),
			UseSSL:    viper.GetBool("MINIO_USE_SSL"),
			Bucket:    viper.GetString("MINIO_BUCKET"),
		},
	}
}

// New opens the backend selected by cfg.Driver.
func New(cfg *Config) (Store, error) {
	switch cfg.Driver {
	case DriverLocal, "":
		return NewLocalStorage(cfg.Root)
	case DriverMinIO:
		return NewMinIOStorage(&cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
