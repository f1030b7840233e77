package models

import "go.uber.org/zap"

// RequestScope is a request level context scope passed between middleware
// and into the authorization chain evaluator.
type RequestScope struct {
	// AccessDenied indicates a decision has already been made for this request
	// and downstream middleware should not re-evaluate
	AccessDenied bool
	// Identity is the principal established by the fronting authenticator,
	// nil when the request carries no identity
	Identity *Principal
	// Method is the HTTP method being authorized, normally the request's own
	// method but replaceable from X-Forwarded-Method in forward-auth mode
	Method string
	// The parsed (unescaped) value of the request path
	Path string
	// The exact path received in the request, if different than Path
	RawPath string
	Logger  *zap.Logger

	// activeProvider names the provider currently being consulted for this
	// request, empty outside of a provider call. Diagnostic only.
	activeProvider string
}

// SetActiveProvider records the provider about to be consulted.
func (s *RequestScope) SetActiveProvider(name string) {
	s.activeProvider = name
}

// ClearActiveProvider resets the diagnostic slot, called after every provider
// invocation regardless of its result.
func (s *RequestScope) ClearActiveProvider() {
	s.activeProvider = ""
}

// ActiveProvider returns the provider currently being consulted, if any.
func (s *RequestScope) ActiveProvider() string {
	return s.activeProvider
}
