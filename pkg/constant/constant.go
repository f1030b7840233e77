package constant

type contextKey int8

const (
	Prog        = "gatewarden"
	Author      = "gatewarden"
	Email       = ""
	Description = "is a forward-auth gate evaluating ordered chains of authorization providers"

	AuthorizationHeader = "Authorization"
	ChallengeHeader     = "WWW-Authenticate"
	EnvPrefix           = "GATE_"
	VersionHeader       = "X-Gatewarden-Version"

	HealthURL  = "/health"
	MetricsURL = "/metrics"
	DebugURL   = "/debug/pprof"

	// provider registry coordinates, mirrors the (group, name, version)
	// triple used when providers register themselves
	AuthzProviderGroup = "authz"
	ProviderVersion    = "0"
	DefaultProvider    = "authenticated"

	// providers shipped in pkg/providers
	AuthenticatedProvider = "authenticated"
	UserProvider          = "user"
	GroupFileProvider     = "group-file"
	RegoProvider          = "rego"
	OpaProvider           = "opa"

	_ contextKey = iota
	ContextScopeName

	// trusted identity headers set by the fronting authenticator
	HeaderXAuthUsername = "X-Auth-Username"
	HeaderXAuthGroups   = "X-Auth-Groups"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderXRealIP       = "X-Real-IP"

	HeaderXForwardedURI    = "X-Forwarded-Uri"
	HeaderXForwardedMethod = "X-Forwarded-Method"
	HeaderXForwardedProto  = "X-Forwarded-Proto"

	AnyMethod = "ANY"

	AllPath = "/*"
)
