package types

import "time"

// Defaults for the collection API and the browser surface.
const (
	DefaultCollectionBaseURL = "https://collectionapi.metmuseum.org/public/collection/v1"
	DefaultPageSize          = 9
	DefaultBatchMultiplier   = 2
	DefaultImageHost         = "images.metmuseum.org"
	DefaultServerAddr        = ":8080"
	DefaultUserAgent         = "met-search/0.1"
)

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// CollectionConfig holds settings for the collection API client and the page filler.
type CollectionConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the collection API root (no trailing slash).
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// PageSize is the number of cards per results page (default 9).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// BatchMultiplier sizes each detail batch as BatchMultiplier*PageSize
	// identifiers (default 2). Tuning only; it does not affect which records
	// end up on a page.
	BatchMultiplier int `json:"batch_multiplier" yaml:"batch_multiplier" mapstructure:"batch_multiplier"`
}

// ServerConfig holds settings for the browser surface.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// ImageHosts lists the remote hosts the image proxy may fetch from.
	ImageHosts []string `json:"image_hosts" yaml:"image_hosts" mapstructure:"image_hosts"`

	// SessionTTL is how long an idle browser session is kept (default 30m).
	SessionTTL time.Duration `json:"session_ttl" yaml:"session_ttl" mapstructure:"session_ttl"`
}

// AppConfig groups all configuration sections.
type AppConfig struct {
	Collection CollectionConfig `json:"collection" yaml:"collection" mapstructure:"collection"`
	Server     ServerConfig     `json:"server" yaml:"server" mapstructure:"server"`
}

// DefaultAppConfig returns the configuration used when no file or
// environment overrides are present.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Collection: CollectionConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: DefaultUserAgent,
			},
			BaseURL:         DefaultCollectionBaseURL,
			PageSize:        DefaultPageSize,
			BatchMultiplier: DefaultBatchMultiplier,
		},
		Server: ServerConfig{
			Addr:       DefaultServerAddr,
			ImageHosts: []string{DefaultImageHost},
			SessionTTL: 30 * time.Minute,
		},
	}
}

// Normalize fills zero values with defaults.
func (c *AppConfig) Normalize() {
	d := DefaultAppConfig()
	if c.Collection.Timeout <= 0 {
		c.Collection.Timeout = d.Collection.Timeout
	}
	if c.Collection.UserAgent == "" {
		c.Collection.UserAgent = d.Collection.UserAgent
	}
	if c.Collection.BaseURL == "" {
		c.Collection.BaseURL = d.Collection.BaseURL
	}
	if c.Collection.PageSize <= 0 {
		c.Collection.PageSize = d.Collection.PageSize
	}
	if c.Collection.BatchMultiplier <= 0 {
		c.Collection.BatchMultiplier = d.Collection.BatchMultiplier
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if len(c.Server.ImageHosts) == 0 {
		c.Server.ImageHosts = d.Server.ImageHosts
	}
	if c.Server.SessionTTL <= 0 {
		c.Server.SessionTTL = d.Server.SessionTTL
	}
}
