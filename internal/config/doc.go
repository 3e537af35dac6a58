// Package config loads application settings from defaults, an optional
// config.yaml and KOTOBA_ environment variables using viper, and validates
// them with validator struct tags.
package config
