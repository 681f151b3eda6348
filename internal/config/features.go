package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FeatureLabel maps a resource identifier substring to a user-facing
// feature name. Matching is first-match-wins, so order matters.
type FeatureLabel struct {
	Match string `mapstructure:"match"`
	Label string `mapstructure:"label"`
}

type FeatureConfig struct {
	Labels   []FeatureLabel `mapstructure:"labels"`
	Fallback string         `mapstructure:"fallback"`
}

func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		Labels: []FeatureLabel{
			{Match: "leads", Label: "Lead Management"},
			{Match: "campaigns", Label: "Campaign Management"},
			{Match: "users", Label: "User Management"},
			{Match: "customers", Label: "Customer Management"},
		},
		Fallback: "this feature",
	}
}

// FeatureConfigHolder exposes the current feature vocabulary and supports
// hot reload from a mounted config file.
type FeatureConfigHolder struct {
	current atomic.Value // holds FeatureConfig
}

func NewFeatureConfigHolder() (*FeatureConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("features")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/leadway/config") // Volume-mounted config
	v.AddConfigPath("/etc/leadway")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("LEADWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultFeatureConfig()
		v.SetDefault("features.labels", defaults.Labels)
		v.SetDefault("features.fallback", defaults.Fallback)
	}

	var cfg FeatureConfig
	if err := v.UnmarshalKey("features", &cfg); err != nil {
		return nil, err
	}
	if err := validateFeatureConfig(cfg); err != nil {
		return nil, err
	}

	holder := &FeatureConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated FeatureConfig
		if err := v.UnmarshalKey("features", &updated); err != nil {
			log.Printf("[feature-config] reload failed: %v", err)
			return
		}
		if err := validateFeatureConfig(updated); err != nil {
			log.Printf("[feature-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[feature-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticFeatureConfigHolder wraps a fixed vocabulary without file
// watching. Used when no config file is mounted and in tests.
func NewStaticFeatureConfigHolder(cfg FeatureConfig) *FeatureConfigHolder {
	holder := &FeatureConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *FeatureConfigHolder) Get() FeatureConfig {
	return h.current.Load().(FeatureConfig)
}

func validateFeatureConfig(cfg FeatureConfig) error {
	if len(cfg.Labels) == 0 {
		return errors.New("features.labels cannot be empty")
	}
	if strings.TrimSpace(cfg.Fallback) == "" {
		return errors.New("features.fallback cannot be empty")
	}
	for _, label := range cfg.Labels {
		if strings.TrimSpace(label.Match) == "" || strings.TrimSpace(label.Label) == "" {
			return errors.New("features.labels entries require match and label")
		}
	}
	return nil
}
