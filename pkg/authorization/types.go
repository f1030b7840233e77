package authorization

import (
	"github.com/gatewarden/gatewarden/pkg/models"
)

type Decision int

const (
	DeniedAuthz Decision = iota
	GrantedAuthz
	GeneralErrorAuthz

	DeniedAuthzString       string = "Denied"
	GrantedAuthzString      string = "Granted"
	GeneralErrorAuthzString string = "GeneralError"
)

func (decision Decision) String() string {
	switch decision {
	case GrantedAuthz:
		return GrantedAuthzString
	case DeniedAuthz:
		return DeniedAuthzString
	case GeneralErrorAuthz:
		return GeneralErrorAuthzString
	}
	return GeneralErrorAuthzString
}

// Provider is the decision capability of an authorization provider. A denied
// decision means "this provider does not grant, but another provider in the
// chain might". Providers never return Go errors: an internal failure must be
// mapped to GeneralErrorAuthz before returning and logged by the provider
// itself.
//
// A provider must not depend on its position in the chain. It may read the
// request scope and write response-visible state through it as part of its own
// domain logic.
type Provider interface {
	Authorize(scope *models.RequestScope, methods MethodMask, requirement string) Decision
}

// ProviderLookup resolves a named capability from a provider registry. The
// returned value is opaque, callers assert it to the capability they need;
// for chain construction that is the Provider interface above.
type ProviderLookup interface {
	Lookup(group string, name string, version string) (any, bool)
}
