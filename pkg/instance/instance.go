package instance

import (
	"os"

	"github.com/angelmondragon/listingz-backend/pkg/env"
)

const fallbackID = "worker-0"

// GetID identifies this process in lock tokens and logs. LISTINGZ_WORKER_ID
// wins, then POD_NAME, then the hostname.
func GetID() string {
	if id := env.First("LISTINGZ_WORKER_ID", "POD_NAME"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
