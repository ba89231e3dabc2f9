package instance

import "os"

const envInstanceID = "SURPLUS_INSTANCE_ID"

// GetID names this replica: SURPLUS_INSTANCE_ID, then the hostname, then a
// fixed fallback.
func GetID() string {
	if id := os.Getenv(envInstanceID); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "replica-0"
}
