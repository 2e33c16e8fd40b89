// Package instance names the running worker process for logs and locks.
package instance

import "os"

const defaultID = "worker-0"

// GetID returns STOREFRONT_WORKER_ID, then DYNO, then the host name.
func GetID() string {
	for _, key := range []string{"STOREFRONT_WORKER_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return defaultID
}
