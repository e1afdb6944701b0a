package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

func LoadConfig(configPath string) (*Config, error) {
	var config Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnvironmentOverrides(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

var (
	EnvMailAPIKey    = "VALIDY_MAIL_API_KEY"
	EnvEncryptionKey = "VALIDY_ENCRYPTION_KEY"
	EnvScanKey       = "VALIDY_SCAN_API_KEY"
	EnvControlKey    = "VALIDY_CONTROL_API_KEY"
)

func applyEnvironmentOverrides(config *Config) {
	if apiKey := os.Getenv(EnvMailAPIKey); apiKey != "" {
		config.Mail.APIKey = apiKey
	}

	if key := os.Getenv(EnvEncryptionKey); key != "" {
		config.Encryption.Key = key
	}

	if key := os.Getenv(EnvScanKey); key != "" {
		config.API.ScanKey = key
	}

	if key := os.Getenv(EnvControlKey); key != "" {
		config.API.ControlKey = key
	}
}

func validateConfig(config *Config) error {
	err := config.validateServerConfig()
	if err != nil {
		return err
	}

	err = config.validateStorageConfig()
	if err != nil {
		return err
	}

	err = config.validateLogConfig()
	if err != nil {
		return err
	}

	err = config.validateMailConfig()
	if err != nil {
		return err
	}

	err = config.validateNotifyConfig()
	if err != nil {
		return err
	}

	err = config.validateEncryptionConfig()
	if err != nil {
		return err
	}

	err = config.validateAPIConfig()
	if err != nil {
		return err
	}

	return nil
}

func (c *Config) validateServerConfig() error {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerConfig.Addr
	}
	return nil
}

func (c *Config) validateStorageConfig() error {
	if c.Storage.Path == "" {
		c.Storage.Path = DefaultStorageConfig.Path
	}
	return nil
}

func (c *Config) validateLogConfig() error {
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogConfig.Format
	} else if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s, options are text or json", c.Log.Format)
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogConfig.Level
	} else {
		switch c.Log.Level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("invalid log level: %s, options are debug, info, warn, error", c.Log.Level)
		}
	}

	return nil
}

func (c *Config) validateMailConfig() error {
	if c.Mail.APIKey == "" {
		return fmt.Errorf("mail.api_key is required (or set %s)", EnvMailAPIKey)
	}

	if c.Mail.From == "" {
		c.Mail.From = DefaultMailConfig.From
	}

	return nil
}

func (c *Config) validateNotifyConfig() error {
	if c.Notify.Schedule == "" {
		c.Notify.Schedule = DefaultNotifyConfig.Schedule
	}

	if c.Notify.DaysThreshold == 0 {
		c.Notify.DaysThreshold = DefaultNotifyConfig.DaysThreshold
	} else if c.Notify.DaysThreshold < 0 {
		return fmt.Errorf("notify.days_threshold must be >= 0, got %d", c.Notify.DaysThreshold)
	}

	if c.Notify.SendInterval == 0 {
		c.Notify.SendInterval = DefaultNotifyConfig.SendInterval
	} else if c.Notify.SendInterval < 0 {
		return fmt.Errorf("notify.send_interval must be >= 0, got %s", c.Notify.SendInterval)
	}

	return nil
}

func (c *Config) validateEncryptionConfig() error {
	if c.Encryption.Key == "" {
		return fmt.Errorf("encryption.key is required (or set %s)", EnvEncryptionKey)
	}
	return nil
}

func (c *Config) validateAPIConfig() error {
	if c.API.ScanKey == "" {
		return fmt.Errorf("api.scan_key is required (or set %s)", EnvScanKey)
	}
	if c.API.ControlKey == "" {
		return fmt.Errorf("api.control_key is required (or set %s)", EnvControlKey)
	}
	return nil
}
