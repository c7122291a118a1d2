package matrix

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Config holds configuration for the Matrix side of the bridge.
type Config struct {
	// Homeserver is the Matrix homeserver URL (required)
	Homeserver string

	// UserID is the bridge service's Matrix user ID (e.g. @twitterbot:example.org) (required)
	UserID string

	// AccessToken is the access token for authentication (required)
	AccessToken string

	// Domain is the homeserver domain used for derived principals.
	// Defaults to the server part of UserID.
	Domain string

	// SyncBackoff is the wait after a failed sync before retrying
	SyncBackoff time.Duration

	// Logger is an optional logger instance
	Logger *slog.Logger
}

// Validate checks if the configuration is valid and applies defaults.
func (c *Config) Validate() error {
	if c.Homeserver == "" {
		return fmt.Errorf("homeserver is required")
	}

	if c.UserID == "" {
		return fmt.Errorf("user_id is required")
	}

	if c.AccessToken == "" {
		return fmt.Errorf("access_token is required")
	}

	if c.Domain == "" {
		_, domain, ok := strings.Cut(c.UserID, ":")
		if !ok {
			return fmt.Errorf("user_id %q has no server part and no domain was configured", c.UserID)
		}
		c.Domain = domain
	}

	if c.SyncBackoff == 0 {
		c.SyncBackoff = 5 * time.Second
	}

	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	return nil
}
