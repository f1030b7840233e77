package server

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/purell"
	"github.com/go-chi/chi/v5/middleware"
	uuid "github.com/gofrs/uuid"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"github.com/gatewarden/gatewarden/pkg/apperrors"
	"github.com/gatewarden/gatewarden/pkg/authorization"
	"github.com/gatewarden/gatewarden/pkg/config"
	"github.com/gatewarden/gatewarden/pkg/constant"
	"github.com/gatewarden/gatewarden/pkg/metrics"
	"github.com/gatewarden/gatewarden/pkg/models"
	"github.com/gatewarden/gatewarden/pkg/storage"
	"github.com/gatewarden/gatewarden/pkg/utils"
)

const (
	normalizeFlags purell.NormalizationFlags = purell.FlagRemoveDotSegments | purell.FlagRemoveDuplicateSlashes
)

// entrypointMiddleware is custom filtering for incoming requests.
func entrypointMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(wrt http.ResponseWriter, req *http.Request) {
			// We want to normalize the URL so the scope matching sees the same
			// path the upstream would serve.
			purell.NormalizeURL(req.URL, normalizeFlags)

			// ensure we have a slash in the url
			if !strings.HasPrefix(req.URL.Path, "/") {
				req.URL.Path = "/" + req.URL.Path
			}
			req.URL.RawPath = req.URL.EscapedPath()

			// @step: create a context for the request
			scope := &models.RequestScope{}
			scope.Path = req.URL.Path
			scope.RawPath = req.URL.RawPath
			scope.Method = req.Method
			scope.Logger = logger

			resp := middleware.NewWrapResponseWriter(wrt, 1)
			start := time.Now()

			logger.Debug("incoming request", zap.String("request-path", req.URL.Path))

			next.ServeHTTP(resp, req.WithContext(context.WithValue(req.Context(), constant.ContextScopeName, scope)))

			// @metric record the time taken then response code
			metrics.LatencyMetric.Observe(time.Since(start).Seconds())
			metrics.StatusMetric.WithLabelValues(strconv.Itoa(resp.Status()), req.Method).Inc()
		})
	}
}

// requestIDMiddleware is responsible for adding a request id if none found.
func requestIDMiddleware(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(wrt http.ResponseWriter, req *http.Request) {
			if v := req.Header.Get(header); v == "" {
				uuid, err := uuid.NewV1()
				if err != nil {
					wrt.WriteHeader(http.StatusInternalServerError)
				}
				req.Header.Set(header, uuid.String())
			}

			next.ServeHTTP(wrt, req)
		})
	}
}

// loggingMiddleware is a custom http logger.
func loggingMiddleware(logger *zap.Logger, verbose bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			resp, assertOk := w.(middleware.WrapResponseWriter)
			if !assertOk {
				logger.Error(apperrors.ErrAssertionFailed.Error())
				return
			}

			scope, assertOk := req.Context().Value(constant.ContextScopeName).(*models.RequestScope)
			if !assertOk {
				logger.Error(apperrors.ErrAssertionFailed.Error())
				return
			}

			addr := utils.RealIP(req)
			if verbose {
				requestLogger := logger.With(
					zap.Any("headers", req.Header),
					zap.String("path", req.URL.Path),
					zap.String("method", req.Method),
					zap.String("client_ip", addr),
				)
				scope.Logger = requestLogger
			}

			next.ServeHTTP(resp, req)

			scope.Logger.Info("client request",
				zap.Duration("latency", time.Since(start)),
				zap.Int("status", resp.Status()),
				zap.Int("bytes", resp.BytesWritten()),
				zap.String("remote_addr", req.RemoteAddr),
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path))
		})
	}
}

func methodCheckMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		logger.Info("enabling the method check middleware")

		return http.HandlerFunc(func(wrt http.ResponseWriter, req *http.Request) {
			if !utils.IsValidHTTPMethod(req.Method) {
				logger.Warn("method not implemented", zap.String("method", req.Method))
				wrt.WriteHeader(http.StatusNotImplemented)
				return
			}

			next.ServeHTTP(wrt, req)
		})
	}
}

// securityMiddleware performs numerous security checks on the request.
func securityMiddleware(
	logger *zap.Logger,
	allowedHosts []string,
	browserXSSFilter bool,
	contentSecurityPolicy string,
	contentTypeNosniff bool,
	frameDeny bool,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		logger.Info("enabling the security filter middleware")

		secureFilter := secure.New(secure.Options{
			AllowedHosts:          allowedHosts,
			BrowserXssFilter:      browserXSSFilter,
			ContentSecurityPolicy: contentSecurityPolicy,
			ContentTypeNosniff:    contentTypeNosniff,
			FrameDeny:             frameDeny,
			SSLProxyHeaders:       map[string]string{constant.HeaderXForwardedProto: "https"},
		})

		return http.HandlerFunc(func(wrt http.ResponseWriter, req *http.Request) {
			scope, assertOk := req.Context().Value(constant.ContextScopeName).(*models.RequestScope)
			if !assertOk {
				logger.Error(apperrors.ErrAssertionFailed.Error())
				return
			}

			if err := secureFilter.Process(wrt, req); err != nil {
				scope.Logger.Warn("failed security middleware", zap.Error(err))
				scope.AccessDenied = true
				wrt.WriteHeader(http.StatusForbidden)
				return
			}

			next.ServeHTTP(wrt, req)
		})
	}
}

/*
	identityMiddleware establishes the request principal from the trusted
	identity headers set by the fronting authenticator, and folds in the
	X-Forwarded-Method / X-Forwarded-Uri overrides carried by auth
	sub-requests. No identity headers means an anonymous request; that is a
	matter for the providers, not a failure here.
*/
func identityMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(wrt http.ResponseWriter, req *http.Request) {
			scope, assertOk := req.Context().Value(constant.ContextScopeName).(*models.RequestScope)
			if !assertOk {
				logger.Error(apperrors.ErrAssertionFailed.Error())
				return
			}

			if forwardedMethod := req.Header.Get(constant.HeaderXForwardedMethod); forwardedMethod != "" {
				scope.Method = forwardedMethod
			}
			if forwardedPath := req.Header.Get(constant.HeaderXForwardedURI); forwardedPath != "" {
				if parsed, err := url.Parse(forwardedPath); err == nil {
					// the forwarded uri is the path that gets authorized, so it
					// needs the same normalization as the request url
					purell.NormalizeURL(parsed, normalizeFlags)
					if !strings.HasPrefix(parsed.Path, "/") {
						parsed.Path = "/" + parsed.Path
					}
					scope.Path = parsed.Path
					scope.RawPath = parsed.EscapedPath()
				}
			}

			if username := req.Header.Get(constant.HeaderXAuthUsername); username != "" {
				user := &models.Principal{Name: username}
				if groups := req.Header.Get(constant.HeaderXAuthGroups); groups != "" {
					user.Groups = strings.Split(groups, ",")
					for idx := range user.Groups {
						user.Groups[idx] = strings.TrimSpace(user.Groups[idx])
					}
				}
				scope.Identity = user
				scope.Logger = scope.Logger.With(zap.String("user", user.Name))
			}

			next.ServeHTTP(wrt, req)
		})
	}
}

/*
	authorizationMiddleware runs the provider chain of the matched scope and
	writes the verdict onto the response. Settled verdicts are cached in the
	decision store when one is configured; a general error is never cached.
*/
//nolint:cyclop
func authorizationMiddleware(
	logger *zap.Logger,
	scopes *config.ScopeIndex,
	providers authorization.ProviderLookup,
	store storage.Storage,
	cacheTTL time.Duration,
	realm string,
) func(http.Handler) http.Handler {
	challenge := `Basic realm="` + realm + `"`

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(wrt http.ResponseWriter, req *http.Request) {
			scope, assertOk := req.Context().Value(constant.ContextScopeName).(*models.RequestScope)
			if !assertOk {
				logger.Error(apperrors.ErrAssertionFailed.Error())
				return
			}

			if scope.AccessDenied {
				next.ServeHTTP(wrt, req)
				return
			}

			chain, found := scopes.Match(scope.Path)
			if !found {
				scope.Logger.Debug("no scope covers the path", zap.String("path", scope.Path))
				next.ServeHTTP(wrt, req)
				return
			}

			decision, cached := cachedDecision(req.Context(), scope, store)
			if !cached {
				start := time.Now()
				decision = authorization.Authorize(scope, chain, providers)
				metrics.EvaluationLatencyMetric.Observe(time.Since(start).Seconds())
				storeDecision(req.Context(), scope, store, cacheTTL, decision)
			}

			scope.Logger.Info("authz decision",
				zap.String("decision", decision.String()),
				zap.String("path", scope.Path),
				zap.String("method", scope.Method),
				zap.Bool("cached", cached))

			outcome := authorization.MapOutcome(decision)
			if !outcome.Proceed {
				scope.AccessDenied = true
				if outcome.Challenge {
					wrt.Header().Set(constant.ChallengeHeader, challenge)
				}
				wrt.WriteHeader(outcome.Status)
				return
			}

			next.ServeHTTP(wrt, req)
		})
	}
}

// decisionCacheKey hashes the identity tuple the decision depends on. The
// rule chains are static for the process lifetime so they are not part of
// the key.
func decisionCacheKey(scope *models.RequestScope) string {
	name := ""
	if scope.Identity != nil {
		name = scope.Identity.String()
	}
	return utils.GetHashKey(name + "|" + scope.Method + "|" + scope.Path)
}

func cachedDecision(
	ctx context.Context,
	scope *models.RequestScope,
	store storage.Storage,
) (authorization.Decision, bool) {
	if store == nil {
		return authorization.DeniedAuthz, false
	}

	value, err := store.Get(ctx, decisionCacheKey(scope))
	if err != nil {
		if err != storage.ErrNotFound {
			scope.Logger.Warn("failed to query the decision store", zap.Error(err))
			metrics.CacheMetric.WithLabelValues("error").Inc()
			return authorization.DeniedAuthz, false
		}
		metrics.CacheMetric.WithLabelValues("miss").Inc()
		return authorization.DeniedAuthz, false
	}

	switch value {
	case authorization.GrantedAuthzString:
		metrics.CacheMetric.WithLabelValues("hit").Inc()
		return authorization.GrantedAuthz, true
	case authorization.DeniedAuthzString:
		metrics.CacheMetric.WithLabelValues("hit").Inc()
		return authorization.DeniedAuthz, true
	default:
		// an unexpected value is treated as a miss and overwritten
		metrics.CacheMetric.WithLabelValues("error").Inc()
		return authorization.DeniedAuthz, false
	}
}

func storeDecision(
	ctx context.Context,
	scope *models.RequestScope,
	store storage.Storage,
	ttl time.Duration,
	decision authorization.Decision,
) {
	if store == nil || decision == authorization.GeneralErrorAuthz {
		return
	}

	if err := store.Set(ctx, decisionCacheKey(scope), decision.String(), ttl); err != nil {
		scope.Logger.Warn("failed to cache the decision", zap.Error(err))
		metrics.CacheMetric.WithLabelValues("error").Inc()
	}
}
