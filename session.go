package reservoir

import "github.com/msandler/reservoir/iface"

// Session identifies one logical caller across nested Hold calls.
type Session = iface.Session

// NewSession creates a fresh caller identity for use with Pool.Hold.
func NewSession() *Session {
	return iface.NewSession()
}
