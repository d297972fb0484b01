package core

import (
	"fmt"
	"os"
	"strings"

	"github.com/jo-hoe/gallery/internal/backend/blob"
	"github.com/jo-hoe/gallery/internal/backend/database"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort         = 3001
	defaultMetadataPath = "data/gallery.json"
	defaultUploadDir    = "uploads"
	defaultPublicPath   = "/uploads"
)

type Metadata struct {
	Type             string `yaml:"type"`
	Path             string `yaml:"path"`
	ConnectionString string `yaml:"connectionString"`
	Key              string `yaml:"key"`
}

type Uploads struct {
	Dir         string `yaml:"dir"`
	PublicPath  string `yaml:"publicPath"`
	MaxFileSize int64  `yaml:"maxFileSize"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type ServiceConfig struct {
	Port     int      `yaml:"port"`
	Metadata Metadata `yaml:"metadata"`
	Uploads  Uploads  `yaml:"uploads"`
	CORS     CORS     `yaml:"cors"`
}

// DefaultConfig returns the configuration used for any value a config file leaves unset.
func DefaultConfig() *ServiceConfig {
	config := &ServiceConfig{}
	config.applyDefaults()
	return config
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML
	var config ServiceConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	return &config, nil
}

func (c *ServiceConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Metadata.Type == "" {
		c.Metadata.Type = database.TypeJSON
	}
	if c.Metadata.Type == database.TypeJSON && c.Metadata.Path == "" {
		c.Metadata.Path = defaultMetadataPath
	}
	if c.Metadata.Type == database.TypeRedis && c.Metadata.Key == "" {
		c.Metadata.Key = database.DefaultRedisKey
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = defaultUploadDir
	}
	if c.Uploads.PublicPath == "" {
		c.Uploads.PublicPath = defaultPublicPath
	}
	if c.Uploads.MaxFileSize == 0 {
		c.Uploads.MaxFileSize = blob.DefaultMaxFileSize
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
}

// Validate ensures the configuration describes a usable service
func (c *ServiceConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}

	switch c.Metadata.Type {
	case database.TypeJSON, database.TypeMemory:
	case database.TypeSQLite, database.TypeRedis:
		if c.Metadata.ConnectionString == "" {
			return fmt.Errorf("metadata type %s requires a connectionString", c.Metadata.Type)
		}
	default:
		return fmt.Errorf("unsupported metadata type: %s", c.Metadata.Type)
	}

	if c.Uploads.MaxFileSize < 0 {
		return fmt.Errorf("uploads.maxFileSize must be positive, got %d", c.Uploads.MaxFileSize)
	}
	if !strings.HasPrefix(c.Uploads.PublicPath, "/") || strings.TrimRight(c.Uploads.PublicPath, "/") == "" {
		return fmt.Errorf("uploads.publicPath must be an absolute URL path below root, got %q", c.Uploads.PublicPath)
	}

	return nil
}

// MetadataOptions translates the metadata section for the database factory.
func (c *ServiceConfig) MetadataOptions() database.Options {
	return database.Options{
		Type:             c.Metadata.Type,
		Path:             c.Metadata.Path,
		ConnectionString: c.Metadata.ConnectionString,
		Key:              c.Metadata.Key,
	}
}
