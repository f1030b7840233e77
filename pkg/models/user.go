package models

import (
	"strings"
)

// Principal is the identity of the already authenticated user on whose behalf
// a request is being authorized. Establishing the identity is the job of the
// fronting authenticator, gatewarden only consumes it.
type Principal struct {
	// Name is the login name of the user
	Name string
	// Groups the user belongs to, as asserted by the authenticator
	Groups []string
	// Claims carries any extra identity attributes forwarded by the
	// authenticator, keyed by claim name
	Claims map[string]string
}

// InGroup checks group membership, case sensitive.
func (p *Principal) InGroup(group string) bool {
	for _, grp := range p.Groups {
		if grp == group {
			return true
		}
	}
	return false
}

// String returns a loggable representation of the principal.
func (p *Principal) String() string {
	if len(p.Groups) == 0 {
		return p.Name
	}
	return p.Name + " (" + strings.Join(p.Groups, ",") + ")"
}
