// Package config loads runtime configuration for the gpgcloud tool.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-d string   metadata database path
//	-b string   backend to use
//	-r string   recipient key id or identity
//	-l string   log level
//
// # JSON schema
//
// The JSON loader uses timex.Duration for delays, so values can be either
// strings like "500ms" or integer nanoseconds:
//
//	{
//	  "database_dsn": "gpgcloud.db",
//	  "default_backend": "s3-main",
//	  "recipient": "alice@example.com",
//	  "retry_base_delay": "500ms",
//	  "s3_bucket": "backups",
//	  "s3_region": "eu-west-1"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
