package legacy

// Config holds connection settings for the legacy document store.
type Config struct {
	// Addr is the Redis host:port.
	Addr string `mapstructure:"addr" default:"localhost:6379"`
	// Password authenticates against Redis.
	Password string `mapstructure:"password" default:""`
	// DB selects the Redis logical database.
	DB int `mapstructure:"db" default:"0"`
	// KeyPrefix namespaces user documents.
	KeyPrefix string `mapstructure:"key_prefix" default:"users:"`
}
