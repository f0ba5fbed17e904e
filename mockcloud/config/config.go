package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Node config
	Node    string `mapstructure:"node"`
	Host    string `mapstructure:"host"` // Unique hostname or IP of this node
	Region  string `mapstructure:"region"`
	DataDir string `mapstructure:"data_dir"`
	BaseDir string `mapstructure:"base_dir"`

	NATS    NATSConfig    `mapstructure:"nats"`
	Gateway GatewayConfig `mapstructure:"gateway"`

	// Authentication
	AccessKey string `mapstructure:"accesskey"`
	SecretKey string `mapstructure:"secretkey"`
}

// GatewayConfig holds the AWS gateway configuration
type GatewayConfig struct {
	Host    string `mapstructure:"host"`
	TLSKey  string `mapstructure:"tlskey"`
	TLSCert string `mapstructure:"tlscert"`

	Debug bool `mapstructure:"debug"`
}

// NATSConfig holds the NATS configuration
type NATSConfig struct {
	Host     string  `mapstructure:"host"`
	StoreDir string  `mapstructure:"store_dir"`
	ACL      NATSACL `mapstructure:"acl"`
}

// NATSACL holds the NATS ACL configuration
type NATSACL struct {
	Token string `mapstructure:"token"`
}

// MasterKeyPath returns where the secret-encryption master key lives.
func (c *Config) MasterKeyPath() string {
	return filepath.Join(c.DataDir, "master.key")
}

// BootstrapPath returns where the sealed bootstrap credentials live.
func (c *Config) BootstrapPath() string {
	return filepath.Join(c.DataDir, "bootstrap.json")
}

// LoadConfig loads the configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Set environment variable prefix
	viper.SetEnvPrefix("MOCKCLOUD")
	viper.AutomaticEnv()

	// Try to load config file if it exists
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			viper.SetConfigFile(configPath)
			viper.SetConfigType("toml")

			if err := viper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else {
			fmt.Fprintf(os.Stderr, "Config file not found: %s, using environment variables and defaults\n", configPath)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.DataDir == "" {
		config.DataDir = filepath.Join(os.Getenv("HOME"), "mockcloud")
	}

	return &config, nil
}
