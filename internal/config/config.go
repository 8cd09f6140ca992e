// Package config loads cirrus settings (viper: flags, CIRRUS_* environment,
// config file) and manages the cloud contexts file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by viper
const EnvPrefix = "CIRRUS"

// Settings keys
const (
	KeyBaseDir               = "base_dir"
	KeyTemplateDir           = "template_dir"
	KeyClustersDir           = "clusters_dir"
	KeyPlaybookDir           = "playbook_dir"
	KeyTerraformBin          = "terraform_bin"
	KeyAnsibleBin            = "ansible_bin"
	KeyReadinessTimeout      = "readiness_timeout"
	KeyReadinessInterval     = "readiness_interval"
	KeyReadinessExt          = "readiness_ext"
	KeyToolTimeout           = "tool_timeout"
	KeyLockWait              = "lock_wait"
	KeyDestroyOnFailedCreate = "destroy_on_failed_create"
	KeyInventoryFile         = "inventory_file"
	KeyPods                  = "pods"
	KeyAddr                  = "addr"
	KeyLogLevel              = "log_level"
	KeyLogFormat             = "log_format"
	KeyValidateRegion        = "validate_region"
)

// Settings is the resolved runtime configuration
type Settings struct {
	BaseDir               string            `mapstructure:"base_dir"`
	TemplateDir           string            `mapstructure:"template_dir"`
	ClustersDir           string            `mapstructure:"clusters_dir"`
	PlaybookDir           string            `mapstructure:"playbook_dir"`
	TerraformBin          string            `mapstructure:"terraform_bin"`
	AnsibleBin            string            `mapstructure:"ansible_bin"`
	ReadinessTimeout      time.Duration     `mapstructure:"readiness_timeout"`
	ReadinessInterval     time.Duration     `mapstructure:"readiness_interval"`
	ReadinessExt          string            `mapstructure:"readiness_ext"`
	ToolTimeout           time.Duration     `mapstructure:"tool_timeout"`
	LockWait              time.Duration     `mapstructure:"lock_wait"`
	DestroyOnFailedCreate bool              `mapstructure:"destroy_on_failed_create"`
	InventoryFile         string            `mapstructure:"inventory_file"`
	Pods                  map[string]string `mapstructure:"pods"`
	Addr                  string            `mapstructure:"addr"`
	LogLevel              string            `mapstructure:"log_level"`
	LogFormat             string            `mapstructure:"log_format"`
	ValidateRegion        bool              `mapstructure:"validate_region"`
}

// SetDefaults registers the default value of every setting on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBaseDir, ".")
	v.SetDefault(KeyTerraformBin, "terraform")
	v.SetDefault(KeyAnsibleBin, "ansible-playbook")
	v.SetDefault(KeyReadinessTimeout, 30*time.Second)
	v.SetDefault(KeyReadinessInterval, 500*time.Millisecond)
	v.SetDefault(KeyReadinessExt, ".tf")
	v.SetDefault(KeyToolTimeout, 30*time.Minute)
	v.SetDefault(KeyLockWait, 5*time.Second)
	v.SetDefault(KeyDestroyOnFailedCreate, true)
	v.SetDefault(KeyInventoryFile, "inventory.ini")
	v.SetDefault(KeyPods, map[string]string{
		"front": "front.yml",
		"back":  "back.yml",
	})
	v.SetDefault(KeyAddr, ":8000")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyValidateRegion, false)
}

// New returns a viper instance with defaults and CIRRUS_* environment binding
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadConfigFile reads file, or ~/.cirrus.yaml when file is empty.
// A missing default file is not an error.
func ReadConfigFile(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", file, err)
		}
		return nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.SetConfigName(".cirrus")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Load resolves the settings held by v. Relative template, clusters and
// playbook directories are resolved against base_dir.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	if s.BaseDir == "" {
		s.BaseDir = "."
	}
	base, err := filepath.Abs(s.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base_dir: %w", err)
	}
	s.BaseDir = base
	s.TemplateDir = resolve(base, s.TemplateDir, "template")
	s.ClustersDir = resolve(base, s.ClustersDir, "clusters")
	s.PlaybookDir = resolve(base, s.PlaybookDir, "playbooks")

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the settings for values the lifecycle cannot work with
func (s *Settings) Validate() error {
	if s.ReadinessTimeout < 0 {
		return fmt.Errorf("%s must not be negative", KeyReadinessTimeout)
	}
	if s.ReadinessInterval <= 0 {
		return fmt.Errorf("%s must be positive", KeyReadinessInterval)
	}
	if s.ToolTimeout < 0 {
		return fmt.Errorf("%s must not be negative", KeyToolTimeout)
	}
	if !strings.HasPrefix(s.ReadinessExt, ".") {
		return fmt.Errorf("%s must start with a dot, got %q", KeyReadinessExt, s.ReadinessExt)
	}
	if filepath.Base(s.InventoryFile) != s.InventoryFile || s.InventoryFile == "" {
		return fmt.Errorf("%s must be a plain file name, got %q", KeyInventoryFile, s.InventoryFile)
	}
	return nil
}

func resolve(base, dir, fallback string) string {
	if dir == "" {
		dir = fallback
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(base, dir)
}
