// Package config provides configuration management for urlscope,
// including CLI defaults, validation, and the YAML pattern file that
// defines seeds and include/exclude rules per site.
package config
