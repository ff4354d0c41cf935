// Package config provides run configuration for msl: execution defaults,
// validation, and the optional YAML file carrying per-site settings such
// as auth cookies and custom headers.
package config
