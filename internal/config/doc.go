// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable
// interpolation. A small set of CHATLINK_* variables override individual
// fields after the file is parsed, and Watch reloads the file on change.
package config
