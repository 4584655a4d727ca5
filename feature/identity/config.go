package identity

import "time"

// Config holds identity token settings.
type Config struct {
	// Secret signs and verifies identity tokens.
	Secret string `mapstructure:"secret" default:""`
	// Issuer is written to and required on every token.
	Issuer string `mapstructure:"issuer" default:"membership-portal"`
	// TokenTTLMinutes is how long a sign-in stays valid.
	TokenTTLMinutes int `mapstructure:"token_ttl_minutes" default:"720"`
	// BcryptCost is the hashing cost for new credentials.
	BcryptCost int `mapstructure:"bcrypt_cost" default:"10"`
}

// TokenTTL returns the token lifetime, defaulting to 12 hours.
func (c Config) TokenTTL() time.Duration {
	if c.TokenTTLMinutes <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}
