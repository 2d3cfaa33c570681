package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FetchOptions holds fetch pipeline tuning loaded from a yaml file.
// All fields are optional; zero values mean "keep the env/default value".
type FetchOptions struct {
	DelaySeconds float64 `yaml:"delay_seconds"`
	PageSize     int     `yaml:"page_size"`
	MaxGroups    int     `yaml:"max_groups"`
}

// LoadFetchOptions reads and validates fetch options from a yaml file.
func LoadFetchOptions(path string) (*FetchOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fetch options: %w", err)
	}

	var opts FetchOptions
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("parse fetch options: %w", err)
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("validate fetch options: %w", err)
	}

	return &opts, nil
}

// Validate checks option values are within usable bounds.
func (o *FetchOptions) Validate() error {
	if o.DelaySeconds < 0 {
		return fmt.Errorf("delay_seconds must be non-negative, got %v", o.DelaySeconds)
	}
	if o.PageSize < 0 || o.PageSize > 100 {
		return fmt.Errorf("page_size must be between 0 and 100, got %d", o.PageSize)
	}
	if o.MaxGroups < 0 {
		return fmt.Errorf("max_groups must be non-negative, got %d", o.MaxGroups)
	}
	return nil
}

// applyTo copies non-zero options onto the config.
func (o *FetchOptions) applyTo(cfg *Config) {
	if o.DelaySeconds > 0 {
		cfg.FetchDelaySeconds = o.DelaySeconds
	}
	if o.PageSize > 0 {
		cfg.FetchPageSize = o.PageSize
	}
	if o.MaxGroups > 0 {
		cfg.MaxGroups = o.MaxGroups
	}
}
