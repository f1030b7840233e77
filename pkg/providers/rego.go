package providers

import (
	"context"
	"time"

	"github.com/open-policy-agent/opa/rego"
	"go.uber.org/zap"

	"github.com/gatewarden/gatewarden/pkg/apperrors"
	"github.com/gatewarden/gatewarden/pkg/authorization"
	"github.com/gatewarden/gatewarden/pkg/models"
)

// The rule that must evaluate to true for the provider to grant. Policies
// declare `package gatewarden.authz` and define an `allow` rule over the
// input document.
const regoAllowQuery = "data.gatewarden.authz.allow"

const regoEvalTimeout = 5 * time.Second

var _ authorization.Provider = (*RegoProvider)(nil)

// RegoProvider evaluates an embedded Rego policy against the request. The
// policy is compiled once at construction; evaluation runs in-process with no
// network dependency.
type RegoProvider struct {
	log   *zap.Logger
	query rego.PreparedEvalQuery
}

func NewRegoProvider(log *zap.Logger, policyFile string) (*RegoProvider, error) {
	query, err := rego.New(
		rego.Query(regoAllowQuery),
		rego.Load([]string{policyFile}, nil),
	).PrepareForEval(context.Background())
	if err != nil {
		return nil, err
	}

	return &RegoProvider{
		log:   log,
		query: query,
	}, nil
}

// regoInput is the input document handed to the policy.
type regoInput struct {
	Principal   string            `json:"principal"`
	Groups      []string          `json:"groups"`
	Claims      map[string]string `json:"claims"`
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Requirement string            `json:"requirement"`
}

func (p *RegoProvider) Authorize(
	scope *models.RequestScope,
	_ authorization.MethodMask,
	requirement string,
) authorization.Decision {
	input := regoInput{
		Method:      scope.Method,
		Path:        scope.Path,
		Requirement: requirement,
	}
	if scope.Identity != nil {
		input.Principal = scope.Identity.Name
		input.Groups = scope.Identity.Groups
		input.Claims = scope.Identity.Claims
	}

	ctx, cancel := context.WithTimeout(context.Background(), regoEvalTimeout)
	defer cancel()

	results, err := p.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		p.log.Error(apperrors.ErrRegoQueryFailure.Error(), zap.Error(err))
		return authorization.GeneralErrorAuthz
	}

	if results.Allowed() {
		return authorization.GrantedAuthz
	}

	return authorization.DeniedAuthz
}
