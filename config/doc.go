// Package config loads module configuration from YAML files with
// environment variable overrides. Precedence: defaults, then file, then
// environment.
package config
