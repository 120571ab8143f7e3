package instance

import (
	"os"

	"github.com/angelmondragon/hackbot/pkg/env"
)

// GetID returns the process instance identifier, preferring HACKBOT_INSTANCE_ID
// and then the host name.
func GetID() string {
	if id := env.Get("HACKBOT_INSTANCE_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "hackbot-0"
}
