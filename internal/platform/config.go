package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/aretw0/memosync/pkg/core"
)

const (
	// EnvPrefix prefixes every environment override, e.g. MEMOSYNC_MEMOS_TOKEN.
	EnvPrefix = "MEMOSYNC"
	// ConfigName is the base name of the config file (memosync.yaml, memosync.toml, ...).
	ConfigName = "memosync"

	ModeManual   = "manual"
	ModePeriodic = "periodic"
)

// Config is the complete settings of the synchronizer.
type Config struct {
	Memos   MemosConfig   `mapstructure:"memos" yaml:"memos"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`
	AI      AIConfig      `mapstructure:"ai" yaml:"ai"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

type MemosConfig struct {
	URL      string        `mapstructure:"url" yaml:"url" validate:"required,url"`
	Token    string        `mapstructure:"token" yaml:"token" validate:"required"`
	PageSize int           `mapstructure:"page_size" yaml:"page_size" validate:"min=1,max=1000"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"min=1s"`
}

type SyncConfig struct {
	Dir           string        `mapstructure:"dir" yaml:"dir" validate:"required"`
	Limit         int           `mapstructure:"limit" yaml:"limit" validate:"min=1"`
	Mode          string        `mapstructure:"mode" yaml:"mode" validate:"oneof=manual periodic"`
	Interval      time.Duration `mapstructure:"interval" yaml:"interval" validate:"min=1m"`
	UpdateChanged bool          `mapstructure:"update_changed" yaml:"update_changed"`
	Timezone      string        `mapstructure:"timezone" yaml:"timezone"`
	Frontmatter   bool          `mapstructure:"frontmatter" yaml:"frontmatter"`
}

type AIConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	Provider     string        `mapstructure:"provider" yaml:"provider" validate:"oneof=none claude openai gemini ollama"`
	APIKey       string        `mapstructure:"api_key" yaml:"api_key"`
	Model        string        `mapstructure:"model" yaml:"model"`
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url" validate:"omitempty,url"`
	Summary      bool          `mapstructure:"summary" yaml:"summary"`
	Tags         bool          `mapstructure:"tags" yaml:"tags"`
	WeeklyDigest bool          `mapstructure:"weekly_digest" yaml:"weekly_digest"`
	DigestWeeks  int           `mapstructure:"digest_weeks" yaml:"digest_weeks" validate:"min=1"`
	Language     string        `mapstructure:"language" yaml:"language" validate:"required"`
	RetryDelay   time.Duration `mapstructure:"retry_delay" yaml:"retry_delay" validate:"min=0"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"min=1s"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" validate:"min=1"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" validate:"min=0"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
}

// Location resolves Sync.Timezone. An empty value means the local zone.
func (c SyncConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Defaults returns the configuration used when neither file nor environment set a key.
func Defaults() Config {
	return Config{
		Memos: MemosConfig{PageSize: 100, Timeout: 30 * time.Second},
		Sync: SyncConfig{
			Dir:         "memos",
			Limit:       1000,
			Mode:        ModeManual,
			Interval:    30 * time.Minute,
			Timezone:    "Local",
			Frontmatter: true,
		},
		AI: AIConfig{
			Provider:    "none",
			Summary:     true,
			Tags:        true,
			Language:    "en",
			DigestWeeks: 4,
			RetryDelay:  time.Second,
			Timeout:     60 * time.Second,
		},
		Log: LogConfig{Level: "info", MaxSizeMB: 10, MaxBackups: 3},
	}
}

// setDefaults registers every key so that environment overrides apply even
// when the key is absent from the config file.
func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("memos.url", d.Memos.URL)
	v.SetDefault("memos.token", d.Memos.Token)
	v.SetDefault("memos.page_size", d.Memos.PageSize)
	v.SetDefault("memos.timeout", d.Memos.Timeout)

	v.SetDefault("sync.dir", d.Sync.Dir)
	v.SetDefault("sync.limit", d.Sync.Limit)
	v.SetDefault("sync.mode", d.Sync.Mode)
	v.SetDefault("sync.interval", d.Sync.Interval)
	v.SetDefault("sync.update_changed", d.Sync.UpdateChanged)
	v.SetDefault("sync.timezone", d.Sync.Timezone)
	v.SetDefault("sync.frontmatter", d.Sync.Frontmatter)

	v.SetDefault("ai.enabled", d.AI.Enabled)
	v.SetDefault("ai.provider", d.AI.Provider)
	v.SetDefault("ai.api_key", d.AI.APIKey)
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.base_url", d.AI.BaseURL)
	v.SetDefault("ai.summary", d.AI.Summary)
	v.SetDefault("ai.tags", d.AI.Tags)
	v.SetDefault("ai.weekly_digest", d.AI.WeeklyDigest)
	v.SetDefault("ai.digest_weeks", d.AI.DigestWeeks)
	v.SetDefault("ai.language", d.AI.Language)
	v.SetDefault("ai.retry_delay", d.AI.RetryDelay)
	v.SetDefault("ai.timeout", d.AI.Timeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)

	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// File is an explicit config file. When empty, memosync.{yaml,toml,json} is
	// searched in the project root (see FindRoot), then in the user config dir.
	File string
	// EnvFile is a dotenv file loaded before reading the environment. Missing files are ignored.
	EnvFile string
	// Dir is where the search starts. Defaults to the working directory.
	Dir string
}

// Load reads defaults, the config file, .env and MEMOSYNC_* variables, in
// increasing order of precedence, and validates the result.
func Load(lo LoadOptions) (Config, string, error) {
	if lo.EnvFile == "" {
		lo.EnvFile = ".env"
	}
	if err := godotenv.Load(lo.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, "", core.ConfigError("failed to load %s: %v", lo.EnvFile, err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if lo.File != "" {
		v.SetConfigFile(lo.File)
	} else {
		v.SetConfigName(ConfigName)
		start := lo.Dir
		if start == "" {
			start = "."
		}
		if root, err := FindRoot(start); err == nil {
			v.AddConfigPath(root)
		}
		v.AddConfigPath(start)
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, ConfigName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if lo.File != "" || !errors.As(err, &notFound) {
			return Config{}, "", core.ConfigError("failed to read config: %v", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", core.ConfigError("failed to decode config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, v.ConfigFileUsed(), err
	}
	return cfg, v.ConfigFileUsed(), nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks field constraints and the rules that span several fields.
func (c Config) Validate() error {
	var problems []string
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return core.ConfigError("%v", err)
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	if c.Memos.URL != "" && !strings.Contains(c.Memos.URL, "/api/v1") {
		problems = append(problems, "memos.url: must include the /api/v1 path")
	}
	if _, err := c.Sync.Location(); err != nil {
		problems = append(problems, fmt.Sprintf("sync.timezone: %v", err))
	}
	if c.AI.Enabled && c.AI.Provider != "none" && c.AI.Provider != "ollama" && c.AI.APIKey == "" {
		problems = append(problems, fmt.Sprintf("ai.api_key: required by provider %s", c.AI.Provider))
	}

	if len(problems) > 0 {
		return core.ConfigError("%s", strings.Join(problems, "; "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return field + ": is required"
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s], got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	case "min", "max":
		return fmt.Sprintf("%s: must be %s %s", field, map[string]string{"min": "at least", "max": "at most"}[fe.Tag()], fe.Param())
	default:
		return fmt.Sprintf("%s: failed %s validation", field, fe.Tag())
	}
}
