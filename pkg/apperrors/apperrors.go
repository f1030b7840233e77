package apperrors

import (
	"errors"
)

var (
	ErrAssertionFailed = errors.New("assertion failed")

	// chain construction errors, fatal at configuration-build time.

	ErrUnknownProvider     = errors.New("unknown authorization provider")
	ErrUnsupportedProvider = errors.New("provider does not implement the authorization decision capability")

	// request-time authorization errors.

	ErrNoDefaultProvider = errors.New("no default authorization provider configured")

	// provider errors, reported by the providers themselves before they
	// return a general-error decision.

	ErrGroupFileRead     = errors.New("unable to read the group file")
	ErrGroupFileFormat   = errors.New("invalid group file entry, expected 'group: member ...'")
	ErrOpaRequestFailure = errors.New("request to OPA endpoint failed")
	ErrOpaInvalidResp    = errors.New("invalid response from OPA endpoint")
	ErrRegoQueryFailure  = errors.New("rego policy evaluation failed")

	// config errors.

	ErrMissingListenInterface = errors.New("you have not specified the listening interface")
	ErrInvalidScopeURI        = errors.New("scope uri must begin with /")
	ErrInvalidRequireEntry    = errors.New("invalid require entry, expected 'provider[ rule]'")
	ErrInvalidMethod          = errors.New("invalid http method in require entry")
	ErrDuplicateScopeURI      = errors.New("duplicate scope uri")
	ErrMissingGroupFile       = errors.New("watch-group-file set but no group file given")
	ErrMissingOpaURI          = errors.New("probe-opa set but no opa-authz-uri given")
	ErrInvalidStoreURL        = errors.New("store url is invalid")
	ErrInvalidCacheTTL        = errors.New("decision-cache-ttl must be greater than zero")

	ErrStartMainHTTP  = errors.New("failed to start main http service")
	ErrStartAdminHTTP = errors.New("failed to start admin service")
)
