package config

import (
	"time"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
	Mail       MailConfig       `yaml:"mail"`
	Notify     NotifyConfig     `yaml:"notify"`
	Encryption EncryptionConfig `yaml:"encryption"`
	API        APIConfig        `yaml:"api"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

var DefaultServerConfig = ServerConfig{
	Addr: ":8080",
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

var DefaultStorageConfig = StorageConfig{
	Path: "certificates.db",
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

var DefaultLogConfig = LogConfig{
	Level:  "info",
	Format: "text",
}

type MailConfig struct {
	APIKey  string `yaml:"api_key"`
	From    string `yaml:"from"`
	BaseURL string `yaml:"base_url"`
}

var DefaultMailConfig = MailConfig{
	From: "Validy <onboarding@resend.dev>",
}

type NotifyConfig struct {
	// Schedule is a five-field cron expression for the recurring scan.
	Schedule string `yaml:"schedule"`
	// DaysThreshold is how many days before expiration a warning goes out.
	DaysThreshold int `yaml:"days_threshold"`
	// SendInterval is the minimum delay between consecutive sends.
	SendInterval time.Duration `yaml:"send_interval"`
}

var DefaultNotifyConfig = NotifyConfig{
	Schedule:      "0 9 * * *",
	DaysThreshold: 10,
	SendInterval:  time.Second,
}

type EncryptionConfig struct {
	// Key is a hex-encoded 32-byte key for the password cipher.
	Key string `yaml:"key"`
}

type APIConfig struct {
	// ScanKey guards the manual scan trigger.
	ScanKey string `yaml:"scan_key"`
	// ControlKey guards the scheduler pause/resume endpoints.
	ControlKey string `yaml:"control_key"`
}
