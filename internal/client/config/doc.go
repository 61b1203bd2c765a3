// Package config loads runtime configuration for the dogstack terminal client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. DOGSTACK_* environment variables.
//  4. Command-line flags, which override earlier values.
//
// # JSON schema
//
// Intervals may be strings like "30s" or integer nanoseconds:
//
//	{
//	  "backend_url": "https://abc.dogstack.dev",
//	  "anon_key": "eyJ...",
//	  "storage_backend": "s3",
//	  "s3": {"endpoint": "http://127.0.0.1:9000", "bucket": "profile-pictures"},
//	  "callback_listen_addr": "127.0.0.1:54330",
//	  "foreground_check_interval": "30s"
//	}
package config
