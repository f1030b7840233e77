package authorization

import (
	"net/http"
)

// Outcome is the externally visible translation of a decision. Proceed means
// the request continues into the protected resource and Status is not
// written. Challenge asks the HTTP layer to issue a credential challenge
// (WWW-Authenticate) alongside the status so the client can retry.
type Outcome struct {
	Proceed   bool
	Status    int
	Challenge bool
}

// MapOutcome is a pure function of the decision, with no dependence on call
// history or the chain that produced it:
//
//	Granted      -> proceed
//	Denied       -> 401 plus a credential challenge
//	GeneralError -> opaque 500, no challenge, the responsible provider is
//	                expected to have logged diagnostics already
func MapOutcome(decision Decision) Outcome {
	switch decision {
	case GrantedAuthz:
		return Outcome{Proceed: true}
	case DeniedAuthz:
		return Outcome{Status: http.StatusUnauthorized, Challenge: true}
	default:
		return Outcome{Status: http.StatusInternalServerError}
	}
}
