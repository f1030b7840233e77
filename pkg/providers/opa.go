package providers

import (
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/gatewarden/gatewarden/pkg/apperrors"
	"github.com/gatewarden/gatewarden/pkg/authorization"
	"github.com/gatewarden/gatewarden/pkg/models"
)

const opaProbeRetries = 5

var _ authorization.Provider = (*OpaProvider)(nil)

// OpaProvider queries a remote Open Policy Agent data API for the decision.
// The document at the configured URI is expected to produce a boolean result,
// e.g. /v1/data/gatewarden/authz/allow.
type OpaProvider struct {
	log    *zap.Logger
	client *resty.Client
	uri    string
}

func NewOpaProvider(log *zap.Logger, uri string, timeout time.Duration) *OpaProvider {
	client := resty.New().SetTimeout(timeout)
	return &OpaProvider{
		log:    log,
		client: client,
		uri:    uri,
	}
}

// Probe checks the OPA endpoint is reachable before the service starts taking
// traffic, retrying with exponential backoff.
func (p *OpaProvider) Probe() error {
	operation := func() error {
		resp, err := p.client.R().Get(p.uri)
		if err != nil {
			return err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return apperrors.ErrOpaInvalidResp
		}
		return nil
	}

	notify := func(err error, delay time.Duration) {
		p.log.Warn(
			"opa endpoint not reachable yet",
			zap.Error(err),
			zap.Duration("retry after", delay),
		)
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), opaProbeRetries)
	return backoff.RetryNotify(operation, bo, notify)
}

type opaInput struct {
	Principal   string            `json:"principal"`
	Groups      []string          `json:"groups"`
	Claims      map[string]string `json:"claims"`
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Requirement string            `json:"requirement"`
}

type opaRequest struct {
	Input opaInput `json:"input"`
}

type opaResponse struct {
	Result bool `json:"result"`
}

func (p *OpaProvider) Authorize(
	scope *models.RequestScope,
	_ authorization.MethodMask,
	requirement string,
) authorization.Decision {
	input := opaInput{
		Method:      scope.Method,
		Path:        scope.Path,
		Requirement: requirement,
	}
	if scope.Identity != nil {
		input.Principal = scope.Identity.Name
		input.Groups = scope.Identity.Groups
		input.Claims = scope.Identity.Claims
	}

	var result opaResponse
	resp, err := p.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(opaRequest{Input: input}).
		SetResult(&result).
		Post(p.uri)
	if err != nil {
		p.log.Error(apperrors.ErrOpaRequestFailure.Error(), zap.Error(err))
		return authorization.GeneralErrorAuthz
	}

	if resp.StatusCode() != http.StatusOK {
		p.log.Error(
			apperrors.ErrOpaInvalidResp.Error(),
			zap.Int("status", resp.StatusCode()),
		)
		return authorization.GeneralErrorAuthz
	}

	if result.Result {
		return authorization.GrantedAuthz
	}

	return authorization.DeniedAuthz
}
