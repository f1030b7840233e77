package authorization

import (
	"fmt"

	"github.com/gatewarden/gatewarden/pkg/apperrors"
	"github.com/gatewarden/gatewarden/pkg/constant"
)

// Requirement is one configured link of an authorization chain: a resolved
// provider, the methods the requirement declares itself applicable to and the
// free-form rule string handed opaquely to the provider at decision time.
// Requirements are created once at configuration load and never mutated.
type Requirement struct {
	providerName string
	provider     Provider
	methods      MethodMask
	requirement  string
}

// ProviderName returns the registry name the requirement was built from.
func (r Requirement) ProviderName() string {
	return r.providerName
}

// Chain is an ordered, append-only sequence of requirements. Insertion order
// is evaluation order and is preserved exactly: evaluation short-circuits, so
// reordering entries changes authorization outcomes. Chains are built during
// configuration load and are immutable afterwards, they are safely shared by
// reference across concurrent request handlers.
type Chain struct {
	entries []Requirement
}

// NewChain returns an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// Empty reports whether the chain has no requirements.
func (c *Chain) Empty() bool {
	return c == nil || len(c.entries) == 0
}

// Len returns the number of requirements.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// AppendRequirement resolves the named provider from the registry and appends
// a requirement to the tail of the chain. It fails with ErrUnknownProvider if
// the registry has no such name and with ErrUnsupportedProvider if the
// registered value does not expose the decision capability. Runs only at
// configuration-build time.
func (c *Chain) AppendRequirement(
	providers ProviderLookup,
	providerName string,
	requirement string,
	methods MethodMask,
) error {
	raw, found := providers.Lookup(
		constant.AuthzProviderGroup,
		providerName,
		constant.ProviderVersion,
	)
	if !found {
		return fmt.Errorf("%w: %s", apperrors.ErrUnknownProvider, providerName)
	}

	provider, ok := raw.(Provider)
	if !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrUnsupportedProvider, providerName)
	}

	c.entries = append(c.entries, Requirement{
		providerName: providerName,
		provider:     provider,
		methods:      methods,
		requirement:  requirement,
	})

	return nil
}

// AppliesToMethod reports whether at least one requirement declares itself
// applicable to the given method. Callers use it to decide whether
// authorization is in force for a request at all; the evaluator itself never
// consults the mask and invokes every provider it reaches.
func (c *Chain) AppliesToMethod(method string) bool {
	if c == nil {
		return false
	}

	for _, entry := range c.entries {
		if entry.methods.Contains(method) {
			return true
		}
	}

	return false
}

// MergeChains implements the per-scope inheritance rule: a child scope with
// its own non-empty chain wholly replaces the parent's chain, otherwise the
// child inherits the parent chain by reference. There is no element-wise
// merge.
func MergeChains(parent *Chain, child *Chain) *Chain {
	if !child.Empty() {
		return child
	}
	return parent
}
