// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Per-stream timing fields left at zero inherit the values under "defaults".
package config
