package providers

import (
	"strings"

	"go.uber.org/zap"

	"github.com/gatewarden/gatewarden/pkg/authorization"
	"github.com/gatewarden/gatewarden/pkg/models"
)

var _ authorization.Provider = (*UserProvider)(nil)

// UserProvider grants when the principal's name appears in the requirement,
// a space separated list of login names.
type UserProvider struct {
	log *zap.Logger
}

func NewUserProvider(log *zap.Logger) *UserProvider {
	return &UserProvider{log: log}
}

func (p *UserProvider) Authorize(
	scope *models.RequestScope,
	_ authorization.MethodMask,
	requirement string,
) authorization.Decision {
	if scope.Identity == nil {
		return authorization.DeniedAuthz
	}

	for _, name := range strings.Fields(requirement) {
		if name == scope.Identity.Name {
			return authorization.GrantedAuthz
		}
	}

	return authorization.DeniedAuthz
}
