// Package serverid resolves the opaque, unique identifier a running
// presence-fabric process uses to claim presence keys and to name its
// targeted flip channel.
package serverid

import "github.com/google/uuid"

// Resolve returns configured if non-empty, otherwise a freshly generated
// unique identifier, generated fresh at startup when none is configured.
func Resolve(configured string) string {
	if configured != "" {
		return configured
	}
	return uuid.NewString()
}
