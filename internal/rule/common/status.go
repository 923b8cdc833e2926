package common

import "net/http"

const DefaultStatus = http.StatusMovedPermanently

// IsTerminal reports whether status ends the request without a destination.
func IsTerminal(status int) bool {
	switch status {
	case http.StatusForbidden, http.StatusNotFound, http.StatusGone:
		return true
	}
	return false
}
