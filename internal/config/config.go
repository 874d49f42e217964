// Package config holds the samkit configuration: logging, evidence
// addressing, email collection and the record schema tables. Defaults,
// including the schema tables in schemas.yaml, are compiled in; a YAML file
// overrides any subset of them.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/joshuapare/samkit/pkg/record"
)

// Log output formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

//go:embed schemas.yaml
var defaultSchemas []byte

// Config represents the application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Evidence EvidenceConfig `yaml:"evidence"`
	Email    EmailConfig    `yaml:"email"`
	Schemas  SchemaConfig   `yaml:"schemas"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Evidence.Validate(); err != nil {
		return fmt.Errorf("evidence: %w", err)
	}
	if err := c.Email.Validate(); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	if err := c.Schemas.Validate(); err != nil {
		return fmt.Errorf("schemas: %w", err)
	}
	return nil
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  slog.Level `yaml:"level"`
	Format string     `yaml:"format"`
	// File receives log output instead of stderr when set.
	File string `yaml:"file"`
}

// Validate validates the log configuration.
func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Format, validation.Required, validation.In(LogFormatText, LogFormatJSON)),
	)
}

// EvidenceConfig describes where evidence lives and how it is probed.
type EvidenceConfig struct {
	// Image is the default evidence container.
	Image string `yaml:"image"`
	// Workdir receives extracted hives under partitions/<N>/.
	Workdir string `yaml:"workdir"`
	// ScanFirst and ScanLast bound the partition indices probed by a scan.
	ScanFirst int      `yaml:"scan_first"`
	ScanLast  int      `yaml:"scan_last"`
	Markers   []string `yaml:"markers"`
	// Hives maps a hive name to its path inside a Windows partition.
	Hives    map[string]string `yaml:"hives"`
	UsersKey string            `yaml:"users_key"`
	// NTFSCachePages sizes the paged reader in front of each NTFS volume.
	NTFSCachePages int `yaml:"ntfs_cache_pages"`
}

// Validate validates the evidence configuration.
func (c *EvidenceConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Workdir, validation.Required),
		validation.Field(&c.ScanFirst, validation.Required, validation.Min(1)),
		validation.Field(&c.ScanLast, validation.Required, validation.Min(1)),
		validation.Field(&c.Markers, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.Hives, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.UsersKey, validation.Required),
		validation.Field(&c.NTFSCachePages, validation.Required, validation.Min(1)),
	); err != nil {
		return err
	}
	if c.ScanLast < c.ScanFirst {
		return fmt.Errorf("scan window %d..%d is empty", c.ScanFirst, c.ScanLast)
	}
	if _, ok := c.Hives["SAM"]; !ok {
		return fmt.Errorf("hives: no SAM entry")
	}
	return nil
}

// EmailConfig describes where mail artifacts live in a user profile.
type EmailConfig struct {
	// ProfileTemplate is a partition path with a {username} placeholder.
	ProfileTemplate string `yaml:"profile_template"`
	Extension       string `yaml:"extension"`
	CaseInsensitive bool   `yaml:"case_insensitive"`
}

// Validate validates the email configuration.
func (c *EmailConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ProfileTemplate, validation.Required),
		validation.Field(&c.Extension, validation.Required),
	)
}

// SchemaConfig holds the record layout tables.
type SchemaConfig struct {
	F   record.FSchema    `yaml:"f_value"`
	V   record.VSchema    `yaml:"v_value"`
	UAC record.FlagSchema `yaml:"uac_flags"`
}

// Validate validates every table.
func (c *SchemaConfig) Validate() error {
	return validation.Errors{
		"f_value":   validation.Validate(c.F, validation.Required),
		"v_value":   validation.Validate(c.V, validation.Required),
		"uac_flags": validation.Validate(c.UAC, validation.Required),
	}.Filter()
}

// NewDefaultConfig returns a Config with the built-in defaults.
func NewDefaultConfig() *Config {
	cfg := &Config{
		Log: LogConfig{
			Level:  slog.LevelInfo,
			Format: LogFormatText,
		},
		Evidence: EvidenceConfig{
			Workdir:   "./uploads",
			ScanFirst: 1,
			ScanLast:  9,
			Markers:   []string{"Documents and Settings"},
			Hives: map[string]string{
				"SAM":      "/Windows/System32/config/SAM",
				"SECURITY": "/Windows/System32/config/SECURITY",
			},
			UsersKey:       `SAM\Domains\Account\Users`,
			NTFSCachePages: 1024,
		},
		Email: EmailConfig{
			ProfileTemplate: "/Users/{username}/AppData/Local/Microsoft/Windows Mail/Local Folders",
			Extension:       ".eml",
		},
	}
	if err := yaml.Unmarshal(defaultSchemas, &cfg.Schemas); err != nil {
		panic(fmt.Sprintf("config: embedded schemas.yaml: %v", err))
	}
	return cfg
}
