package providers

import (
	"go.uber.org/zap"

	"github.com/gatewarden/gatewarden/pkg/authorization"
	"github.com/gatewarden/gatewarden/pkg/models"
)

var _ authorization.Provider = (*AuthenticatedProvider)(nil)

// AuthenticatedProvider grants any request carrying an authenticated
// principal, regardless of who that principal is. It is also registered under
// the default provider name consulted for scopes with no requirements.
type AuthenticatedProvider struct {
	log *zap.Logger
}

func NewAuthenticatedProvider(log *zap.Logger) *AuthenticatedProvider {
	return &AuthenticatedProvider{log: log}
}

func (p *AuthenticatedProvider) Authorize(
	scope *models.RequestScope,
	_ authorization.MethodMask,
	_ string,
) authorization.Decision {
	if scope.Identity == nil {
		return authorization.DeniedAuthz
	}
	return authorization.GrantedAuthz
}
