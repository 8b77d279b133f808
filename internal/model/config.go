package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig locates the record store.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`

	// ReplaceAttachments drops a message's stored attachments before a
	// re-ingest writes the new set.
	ReplaceAttachments bool `mapstructure:"replace_attachments" yaml:"replace_attachments"`
}

// GmailConfig holds the OAuth files for the Gmail source.
type GmailConfig struct {
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	TokenFile       string `mapstructure:"token_file" yaml:"token_file"`
}

// IMAPConfig holds the IMAP server settings. The password comes from the
// keyring or IMAP_PASSWORD.
type IMAPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`
	Mailbox  string `mapstructure:"mailbox" yaml:"mailbox"`
}

// SMTPConfig holds the submission server used to send replies for IMAP and
// mbox sources.
type SMTPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	From     string `mapstructure:"from" yaml:"from"`
	Security string `mapstructure:"security" yaml:"security"`
}

// MboxConfig points at a local mbox archive.
type MboxConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// SourceConfig selects and configures the message source.
type SourceConfig struct {
	// Type is one of "gmail", "imap" or "mbox".
	Type string `mapstructure:"type" yaml:"type"`

	MaxResults      int    `mapstructure:"max_results" yaml:"max_results"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
	Query           string `mapstructure:"query" yaml:"query"`

	Gmail GmailConfig `mapstructure:"gmail" yaml:"gmail"`
	IMAP  IMAPConfig  `mapstructure:"imap" yaml:"imap"`
	SMTP  SMTPConfig  `mapstructure:"smtp" yaml:"smtp"`
	Mbox  MboxConfig  `mapstructure:"mbox" yaml:"mbox"`
}

// CalendarConfig holds the target calendar and the zone events are created in.
type CalendarConfig struct {
	ID       string `mapstructure:"id" yaml:"id"`
	TimeZone string `mapstructure:"time_zone" yaml:"time_zone"`
}

// AIConfig holds settings for the model service.
type AIConfig struct {
	Model      string `mapstructure:"model" yaml:"model"`
	MaxTokens  int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// RetryConfig bounds calls to external services.
type RetryConfig struct {
	Attempts   int `mapstructure:"attempts" yaml:"attempts"`
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// ReplyConfig controls reply drafting.
type ReplyConfig struct {
	From string `mapstructure:"from" yaml:"from"`

	// SafeSenders may receive replies without confirmation.
	SafeSenders []string `mapstructure:"safe_senders" yaml:"safe_senders"`
}

// LogConfig sets the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Source   SourceConfig   `mapstructure:"source" yaml:"source"`
	Calendar CalendarConfig `mapstructure:"calendar" yaml:"calendar"`
	AI       AIConfig       `mapstructure:"ai" yaml:"ai"`
	Retry    RetryConfig    `mapstructure:"retry" yaml:"retry"`
	Reply    ReplyConfig    `mapstructure:"reply" yaml:"reply"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// PollInterval returns the configured poll interval.
func (c *AppConfig) PollInterval() time.Duration {
	return time.Duration(c.Source.PollIntervalSec) * time.Second
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/mailassist/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "mailassist")
}

var defaults = map[string]any{
	"database.path":                 filepath.Join(configDir(), "mail.db"),
	"database.replace_attachments":  false,
	"source.type":                   "gmail",
	"source.max_results":            10,
	"source.poll_interval_sec":      120,
	"source.gmail.credentials_file": filepath.Join(configDir(), "credentials.json"),
	"source.gmail.token_file":       filepath.Join(configDir(), "token.json"),
	"source.imap.port":              "993",
	"source.imap.tls":               true,
	"source.imap.mailbox":           "INBOX",
	"source.smtp.port":              "587",
	"source.smtp.security":          "starttls",
	"calendar.id":                   "primary",
	"calendar.time_zone":            "Asia/Kolkata",
	"ai.model":                      "claude-sonnet-4-5-20250929",
	"ai.max_tokens":                 1024,
	"ai.timeout_sec":                60,
	"retry.attempts":                3,
	"retry.timeout_sec":             30,
	"log.level":                     "info",
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns the default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	switch cfg.Source.Type {
	case "gmail", "imap", "mbox":
	default:
		return nil, fmt.Errorf("config %s: unknown source type %q", path, cfg.Source.Type)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("source", cfg.Source)
	v.Set("calendar", cfg.Calendar)
	v.Set("ai", cfg.AI)
	v.Set("retry", cfg.Retry)
	v.Set("reply", cfg.Reply)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
