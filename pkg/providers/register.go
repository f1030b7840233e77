package providers

import (
	"time"

	"go.uber.org/zap"

	"github.com/gatewarden/gatewarden/pkg/constant"
	"github.com/gatewarden/gatewarden/pkg/registry"
)

const defaultOpaTimeout = 10 * time.Second

// Options selects which optional providers to construct and their inputs.
// The authenticated and user providers are always available.
type Options struct {
	GroupFile      string
	WatchGroupFile bool
	RegoPolicyFile string
	OpaAuthzURI    string
	OpaTimeout     time.Duration
	ProbeOpa       bool
}

// Register constructs the shipped providers and places them into the
// registry under the authz provider group. Runs once at startup, before any
// request is served.
func Register(reg *registry.Registry, log *zap.Logger, opts Options, done <-chan struct{}) error {
	register := func(name string, prv any) {
		reg.Register(constant.AuthzProviderGroup, name, constant.ProviderVersion, prv)
		log.Info("registered authorization provider", zap.String("provider", name))
	}

	register(constant.AuthenticatedProvider, NewAuthenticatedProvider(log))
	register(constant.UserProvider, NewUserProvider(log))

	if opts.GroupFile != "" {
		groupFile := NewGroupFileProvider(log, opts.GroupFile)
		if opts.WatchGroupFile {
			if err := groupFile.Watch(done); err != nil {
				return err
			}
		}
		register(constant.GroupFileProvider, groupFile)
	}

	if opts.RegoPolicyFile != "" {
		regoPrv, err := NewRegoProvider(log, opts.RegoPolicyFile)
		if err != nil {
			return err
		}
		register(constant.RegoProvider, regoPrv)
	}

	if opts.OpaAuthzURI != "" {
		timeout := opts.OpaTimeout
		if timeout <= 0 {
			timeout = defaultOpaTimeout
		}
		opaPrv := NewOpaProvider(log, opts.OpaAuthzURI, timeout)
		if opts.ProbeOpa {
			if err := opaPrv.Probe(); err != nil {
				return err
			}
		}
		register(constant.OpaProvider, opaPrv)
	}

	return nil
}
