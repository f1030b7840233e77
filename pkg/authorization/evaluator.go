package authorization

import (
	"go.uber.org/zap"

	"github.com/gatewarden/gatewarden/pkg/apperrors"
	"github.com/gatewarden/gatewarden/pkg/constant"
	"github.com/gatewarden/gatewarden/pkg/metrics"
	"github.com/gatewarden/gatewarden/pkg/models"
)

// Authorize walks the chain for one request and returns the final decision.
//
// An empty chain falls back to the default provider resolved from the
// registry; a missing or incapable default is a fatal configuration problem
// surfaced as GeneralErrorAuthz. A configured chain is walked strictly in
// order and the first non-denied decision wins: denial means "ask the next
// provider", anything else ends the walk. A chain exhausted by denials denies.
//
// The requirement method masks are deliberately not consulted here, every
// provider reached is invoked regardless of the request method. Method
// applicability is a separate advisory query (Chain.AppliesToMethod) for
// callers deciding whether authorization is in force at all.
//
// One invocation serves one in-flight request; the only shared state is the
// immutable chain and the registry.
func Authorize(scope *models.RequestScope, chain *Chain, providers ProviderLookup) Decision {
	if chain.Empty() {
		return authorizeDefault(scope, providers)
	}

	decision := DeniedAuthz
	for _, entry := range chain.entries {
		decision = invoke(scope, entry.providerName, entry.provider, entry.methods, entry.requirement)
		if decision != DeniedAuthz {
			break
		}
	}

	return decision
}

// authorizeDefault consults the well-known default provider for requests
// reaching a scope with no configured requirements.
func authorizeDefault(scope *models.RequestScope, providers ProviderLookup) Decision {
	raw, found := providers.Lookup(
		constant.AuthzProviderGroup,
		constant.DefaultProvider,
		constant.ProviderVersion,
	)
	if !found {
		scope.Logger.Error(apperrors.ErrNoDefaultProvider.Error())
		return GeneralErrorAuthz
	}

	provider, ok := raw.(Provider)
	if !ok {
		scope.Logger.Error(
			apperrors.ErrNoDefaultProvider.Error(),
			zap.String("provider", constant.DefaultProvider),
		)
		return GeneralErrorAuthz
	}

	return invoke(scope, constant.DefaultProvider, provider, AnyMethod, "")
}

// invoke runs a single provider decision with the diagnostic active-provider
// slot held for exactly the duration of the call. The deferred clear keeps the
// slot from leaking into the next provider call even if the provider panics.
func invoke(
	scope *models.RequestScope,
	name string,
	provider Provider,
	methods MethodMask,
	requirement string,
) Decision {
	scope.SetActiveProvider(name)
	defer scope.ClearActiveProvider()

	decision := provider.Authorize(scope, methods, requirement)
	metrics.DecisionMetric.WithLabelValues(decision.String(), name).Inc()

	return decision
}
