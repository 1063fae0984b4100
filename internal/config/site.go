package config

import (
	"fmt"
	"maps"
	"time"

	"github.com/urlscope/urlscope/internal/scope"
)

// Duration wraps time.Duration with YAML unmarshalling from strings
// like "750ms" or "2s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// IncludePattern is one include rule from the configuration file.
type IncludePattern struct {
	// Pattern is a regular expression matched against URL paths.
	Pattern string `yaml:"pattern"`

	// Entity is the classification label assigned to matching URLs.
	Entity string `yaml:"entity"`
}

// SiteConfig holds the discovery configuration for a single base domain.
type SiteConfig struct {
	// Seeds are the URLs the crawl starts from.
	// When empty, the base URL itself is the only seed.
	Seeds []string `yaml:"seeds,omitempty"`

	// Include are the ordered include rules; first match wins.
	Include []IncludePattern `yaml:"include,omitempty"`

	// Exclude are veto rules; a match always puts a URL out of scope.
	Exclude []string `yaml:"exclude,omitempty"`

	// Depth overrides the global crawl depth for this site.
	// Zero means use the global setting.
	Depth int `yaml:"depth,omitempty"`

	// Delay overrides the global politeness delay for this site.
	Delay Duration `yaml:"delay,omitempty"`

	// Cookie is an HTTP cookie sent with every request to this site.
	// Format: "name=value" or "name1=value1; name2=value2".
	// Useful when discovery runs behind an authenticated session.
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers sent with every request to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// HighPriority lists entity labels materialized as tier P1.
	HighPriority []string `yaml:"highPriority,omitempty"`
}

// CompileClassifier compiles the site's include/exclude rules.
// A malformed pattern is reported here, before any crawl begins.
func (sc SiteConfig) CompileClassifier() (*scope.Classifier, error) {
	includes := make([][2]string, 0, len(sc.Include))
	for _, p := range sc.Include {
		includes = append(includes, [2]string{p.Pattern, p.Entity})
	}
	return scope.CompileRules(includes, sc.Exclude)
}

// File represents the structure of the .urlscope configuration file.
type File struct {
	// Sites maps hostnames to their discovery configuration.
	// Keys are bare hosts without scheme (e.g. "pulse.example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults is applied to every site unless overridden per site.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the merged configuration for a host:
// defaults overlaid with the site-specific entry, if present.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	siteConfig, ok := cf.Sites[host]
	if !ok {
		return result
	}

	if len(siteConfig.Seeds) > 0 {
		result.Seeds = siteConfig.Seeds
	}
	if len(siteConfig.Include) > 0 {
		result.Include = siteConfig.Include
	}
	if len(siteConfig.Exclude) > 0 {
		result.Exclude = siteConfig.Exclude
	}
	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if siteConfig.Delay != 0 {
		result.Delay = siteConfig.Delay
	}
	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if len(siteConfig.Headers) > 0 {
		// Merge into a fresh map: result.Headers still aliases the
		// Defaults map here, and writing through it would leak one
		// site's headers into every later site's merged config.
		merged := make(map[string]string, len(result.Headers)+len(siteConfig.Headers))
		maps.Copy(merged, result.Headers)
		maps.Copy(merged, siteConfig.Headers)
		result.Headers = merged
	}
	if len(siteConfig.HighPriority) > 0 {
		result.HighPriority = siteConfig.HighPriority
	}

	return result
}
