// Package config loads named request profiles for the caravel LLM
// client. A profiles file is optional: with zero external configuration
// the default profile still resolves, using hard-coded defaults and the
// OPENAI_API_KEY environment variable as the credential source.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultProfileName is the profile used when callers do not name one.
const DefaultProfileName = "default"

// Hard-coded defaults, applied for any field a profile leaves unset.
const (
	DefaultModel       = "gpt-3.5-turbo"
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
	DefaultAPIType     = "openai"
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultTimeout     = 60 * time.Second
	DefaultRetries     = 3
	DefaultMinWait     = 1 * time.Second
	DefaultMaxWait     = 10 * time.Second
)

// Profile is a fully resolved request configuration bundle. It is
// immutable for the lifetime of the client constructed from it.
type Profile struct {
	Name           string
	Model          string
	MaxTokens      int
	Temperature    float64
	TopP           float64
	APIType        string
	APIKey         string
	APIVersion     string
	BaseURL        string
	Timeout        time.Duration
	Retries        int
	RetryMinWait   time.Duration
	RetryMaxWait   time.Duration
	CustomProvider string

	// RequestsPerMinute enables a client-side request throttle when
	// positive. Zero means no throttling.
	RequestsPerMinute int
}

// RoutedModel returns the model identifier as sent downstream. For the
// managed-cloud (azure) API type the model carries the provider routing
// tag, mirroring the "azure/<deployment>" convention.
func (p Profile) RoutedModel() string {
	if p.APIType == "azure" {
		return "azure/" + p.Model
	}
	return p.Model
}

// IsLocal reports whether the profile points at a locally served model.
func (p Profile) IsLocal() bool {
	if p.BaseURL != "" {
		for _, host := range []string{"localhost", "127.0.0.1", "0.0.0.0"} {
			if strings.Contains(p.BaseURL, host) {
				return true
			}
		}
	}
	return strings.HasPrefix(p.Model, "ollama") || strings.Contains(strings.ToLower(p.Model), "local")
}

// fileProfile is the YAML shape of one profile. Pointer fields
// distinguish "unset" from legitimate zero values such as temperature 0.
type fileProfile struct {
	Model             *string  `yaml:"model"`
	MaxTokens         *int     `yaml:"max_tokens"`
	Temperature       *float64 `yaml:"temperature"`
	TopP              *float64 `yaml:"top_p"`
	APIType           *string  `yaml:"api_type"`
	APIKey            *string  `yaml:"api_key"`
	APIVersion        *string  `yaml:"api_version"`
	BaseURL           *string  `yaml:"base_url"`
	TimeoutSeconds    *int     `yaml:"timeout"`
	Retries           *int     `yaml:"num_retries"`
	RetryMinSeconds   *int     `yaml:"retry_min_wait"`
	RetryMaxSeconds   *int     `yaml:"retry_max_wait"`
	CustomProvider    *string  `yaml:"custom_provider"`
	RequestsPerMinute *int     `yaml:"requests_per_minute"`
}

// Config holds all named profiles from one configuration source.
type Config struct {
	profiles map[string]fileProfile
}

// fileConfig is the top-level YAML document.
type fileConfig struct {
	Profiles map[string]fileProfile `yaml:"profiles"`
}

// Load reads a profiles YAML file. A missing file is not an error: it
// yields a Config where every profile resolves to the defaults. Returns
// an error only for unreadable or malformed YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{profiles: map[string]fileProfile{}}, nil
		}
		return nil, fmt.Errorf("reading profiles: %w", err)
	}
	return Parse(data)
}

// Parse decodes a profiles YAML document.
func Parse(data []byte) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing profiles: %w", err)
	}
	if fc.Profiles == nil {
		fc.Profiles = map[string]fileProfile{}
	}
	return &Config{profiles: fc.Profiles}, nil
}

// Default returns the resolved default profile of an empty Config.
func Default() Profile {
	return (&Config{profiles: map[string]fileProfile{}}).Profile(DefaultProfileName)
}

// Profile resolves the named profile. An unknown name falls back to the
// "default" profile entry if one exists, then to the hard defaults.
// The credential falls back to the OPENAI_API_KEY environment variable.
func (c *Config) Profile(name string) Profile {
	fp, ok := c.profiles[name]
	if !ok {
		fp = c.profiles[DefaultProfileName]
	}

	p := Profile{
		Name:         name,
		Model:        DefaultModel,
		MaxTokens:    DefaultMaxTokens,
		Temperature:  DefaultTemperature,
		TopP:         DefaultTopP,
		APIType:      DefaultAPIType,
		APIKey:       os.Getenv("OPENAI_API_KEY"),
		BaseURL:      DefaultBaseURL,
		Timeout:      DefaultTimeout,
		Retries:      DefaultRetries,
		RetryMinWait: DefaultMinWait,
		RetryMaxWait: DefaultMaxWait,
	}

	if fp.Model != nil {
		p.Model = *fp.Model
	}
	if fp.MaxTokens != nil {
		p.MaxTokens = *fp.MaxTokens
	}
	if fp.Temperature != nil {
		p.Temperature = *fp.Temperature
	}
	if fp.TopP != nil {
		p.TopP = *fp.TopP
	}
	if fp.APIType != nil {
		p.APIType = *fp.APIType
	}
	if fp.APIKey != nil {
		p.APIKey = *fp.APIKey
	}
	if fp.APIVersion != nil {
		p.APIVersion = *fp.APIVersion
	}
	if fp.BaseURL != nil {
		p.BaseURL = *fp.BaseURL
	}
	if fp.TimeoutSeconds != nil {
		p.Timeout = time.Duration(*fp.TimeoutSeconds) * time.Second
	}
	if fp.Retries != nil {
		p.Retries = *fp.Retries
	}
	if fp.RetryMinSeconds != nil {
		p.RetryMinWait = time.Duration(*fp.RetryMinSeconds) * time.Second
	}
	if fp.RetryMaxSeconds != nil {
		p.RetryMaxWait = time.Duration(*fp.RetryMaxSeconds) * time.Second
	}
	if fp.CustomProvider != nil {
		p.CustomProvider = *fp.CustomProvider
	}
	if fp.RequestsPerMinute != nil {
		p.RequestsPerMinute = *fp.RequestsPerMinute
	}
	return p
}

// Names returns the profile names present in the configuration source.
func (c *Config) Names() []string {
	out := make([]string, 0, len(c.profiles))
	for name := range c.profiles {
		out = append(out, name)
	}
	return out
}
