package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

// DirectoryPerson is one entry of the static people-directory roster.
type DirectoryPerson struct {
	ID    string `yaml:"id" validate:"required"`
	Name  string `yaml:"name" validate:"required"`
	Email string `yaml:"email,omitempty"`
	Role  string `yaml:"role,omitempty"`
}

// Config represents the application configuration
type Config struct {
	DatabaseURL string `yaml:"databaseURL" validate:"required"`

	// OperatorID is the actor recorded on administrative assignments.
	OperatorID string `yaml:"operatorID" validate:"required"`

	// DirectoryCacheTTLMinutes bounds how long directory lookups are cached.
	DirectoryCacheTTLMinutes int `yaml:"directoryCacheTTLMinutes,omitempty" validate:"omitempty,min=1"`

	// UndoWindowSeconds overrides the autosave undo window.
	UndoWindowSeconds int `yaml:"undoWindowSeconds,omitempty" validate:"omitempty,min=1"`

	// FollowUpRRule overrides the default now+7d escalation follow-up
	// cadence with a recurrence rule.
	FollowUpRRule string `yaml:"followUpRRule,omitempty"`

	// People is the directory roster served to the CLI.
	People []DirectoryPerson `yaml:"people,omitempty" validate:"dive"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from coordinator_config.yaml.
// It looks for the config file in the current directory first, then in the
// user's home directory.
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads coordinator_config_<env>.yaml, or the unsuffixed file
// when env is empty.
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(configFileName(env))
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}
	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.FollowUpRRule != "" {
		if _, err := rrule.StrToRRule(cfg.FollowUpRRule); err != nil {
			return fmt.Errorf("invalid rrule in followUpRRule: %w", err)
		}
	}

	return nil
}

// FollowUpRule parses the configured follow-up cadence, nil when unset.
func (c *Config) FollowUpRule() (*rrule.RRule, error) {
	if c.FollowUpRRule == "" {
		return nil, nil
	}
	rule, err := rrule.StrToRRule(c.FollowUpRRule)
	if err != nil {
		return nil, fmt.Errorf("invalid rrule in followUpRRule: %w", err)
	}
	return rule, nil
}

func configFileName(env string) string {
	if env == "" {
		return "coordinator_config.yaml"
	}
	return fmt.Sprintf("coordinator_config_%s.yaml", env)
}

// findConfigFile searches for the config file in current directory and home directory
func findConfigFile(name string) (string, error) {
	// Check current directory
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, name)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file %s not found in current directory or home directory", name)
}
