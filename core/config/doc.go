// Package config provides configuration management for the Membership Portal.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, body limit)
//   - Database: MySQL or SQLite connection details
//   - Storage: S3/MinIO credentials and the profile photo bucket
//   - Log: Logging level and format
//   - Legacy: Redis address and key prefix of the legacy document store
//   - Identity: token secret, issuer and lifetime
//   - Profile: photo size limit and notice duration
//
// Every key can be overridden by its upper-cased environment variable with
// dots replaced by underscores (legacy.key_prefix -> LEGACY_KEY_PREFIX).
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
