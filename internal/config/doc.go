// Package config provides configuration loading and validation for the voice message service.
// It handles YAML-based configuration with per-section struct validation and exposes
// duration helpers for all timing parameters used across the pipeline.
package config
