package storage

import "strings"

// Config holds configuration for the object storage holding profile photos.
type Config struct {
	// Endpoint is the URL of the storage service.
	Endpoint string `mapstructure:"endpoint" default:"localhost:9000"`
	// AccessKey is the access key ID for authentication.
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	// SecretKey is the secret access key for authentication.
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"false"`
	// Bucket is the name of the bucket profile photos are stored in.
	Bucket string `mapstructure:"bucket" default:"profile-photos"`
	// Region is the location of the bucket (e.g., us-east-1).
	Region string `mapstructure:"region" default:""`
	// PublicBaseURL prefixes object keys to build public URLs.
	// When empty the endpoint and scheme are used.
	PublicBaseURL string `mapstructure:"public_base_url" default:""`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// PublicURL returns the public address of objectName inside the configured bucket.
func (c Config) PublicURL(objectName string) string {
	base := strings.TrimSuffix(c.PublicBaseURL, "/")
	if base == "" {
		scheme := "http://"
		if c.UseSSL {
			scheme = "https://"
		}
		host := strings.TrimPrefix(strings.TrimPrefix(c.Endpoint, "http://"), "https://")
		base = scheme + strings.TrimSuffix(host, "/")
	}
	return base + "/" + c.Bucket + "/" + strings.TrimPrefix(objectName, "/")
}
