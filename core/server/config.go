package server

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey protects the operator endpoints (/integrity). Empty disables the check.
	ApiKey string `mapstructure:"api_key" default:""`
	// BodyLimitMB caps request bodies; it must leave room for a full-size profile photo.
	BodyLimitMB int `mapstructure:"body_limit_mb" default:"8"`
	// ReadTimeoutSeconds bounds reading a whole request.
	ReadTimeoutSeconds int `mapstructure:"read_timeout_seconds" default:"30"`
}

const defaultBodyLimitMB = 8

// BodyLimit returns the request body ceiling in bytes.
func (c Config) BodyLimit() int {
	mb := c.BodyLimitMB
	if mb <= 0 {
		mb = defaultBodyLimitMB
	}
	return mb * 1024 * 1024
}

// Address returns the listen address for the configured port.
func (c Config) Address() string {
	if c.Port == "" {
		return ":8080"
	}
	return ":" + c.Port
}
