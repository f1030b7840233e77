package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gatewarden/gatewarden/pkg/apperrors"
	"github.com/gatewarden/gatewarden/pkg/authorization"
)

// Scope is one protected path subtree. A scope owns the require chain for its
// subtree; nested scopes either carry their own chain, replacing the parent's
// wholesale, or inherit the parent chain by declaring no requirements.
type Scope struct {
	URI     string     `json:"uri" yaml:"uri"`
	Require []*Require `json:"require" yaml:"require"`
	Scopes  []*Scope   `json:"scopes" yaml:"scopes"`
}

// Require is one chain link as configured: the provider to consult, the
// opaque rule string handed to it and the methods the link declares itself
// applicable to. An empty method list means any method.
type Require struct {
	Provider string   `json:"provider" yaml:"provider"`
	Rule     string   `json:"rule" yaml:"rule"`
	Methods  []string `json:"methods" yaml:"methods"`
}

// ParseScopeEntry parses the flat single-line form used on the command line,
// 'uri=/admin|provider=user|methods=GET,POST|rule=alice bob'.
func ParseScopeEntry(entry string) (*Scope, error) {
	scope := &Scope{}
	require := &Require{}

	for _, part := range strings.Split(entry, "|") {
		key, value, found := strings.Cut(part, "=")
		if !found {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidRequireEntry, entry)
		}

		switch strings.TrimSpace(key) {
		case "uri":
			scope.URI = strings.TrimSpace(value)
		case "provider":
			require.Provider = strings.TrimSpace(value)
		case "rule":
			require.Rule = value
		case "methods":
			require.Methods = strings.Split(value, ",")
		default:
			return nil, fmt.Errorf("%w: unknown key %s", apperrors.ErrInvalidRequireEntry, key)
		}
	}

	if scope.URI == "" || require.Provider == "" {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidRequireEntry, entry)
	}

	scope.Require = []*Require{require}
	return scope, nil
}

// ScopeEntry pairs a path prefix with the chain in force beneath it.
type ScopeEntry struct {
	URI   string
	Chain *authorization.Chain
}

// ScopeIndex resolves a request path to the chain of the most specific
// configured scope. Built once at startup and immutable afterwards.
type ScopeIndex struct {
	entries []ScopeEntry
}

// BuildScopeIndex turns the configured scope tree into chains. Chain
// construction resolves every referenced provider up front, so a configuration
// naming an unknown or incapable provider is rejected here, at load time.
func BuildScopeIndex(scopes []*Scope, providers authorization.ProviderLookup) (*ScopeIndex, error) {
	index := &ScopeIndex{}
	if err := index.build(scopes, nil, providers); err != nil {
		return nil, err
	}

	// longest prefix first so Match can take the first hit
	sort.SliceStable(index.entries, func(i, j int) bool {
		return len(index.entries[i].URI) > len(index.entries[j].URI)
	})

	return index, nil
}

func (i *ScopeIndex) build(
	scopes []*Scope,
	parent *authorization.Chain,
	providers authorization.ProviderLookup,
) error {
	for _, scope := range scopes {
		own := authorization.NewChain()
		for _, require := range scope.Require {
			methods, err := authorization.ParseMethods(require.Methods)
			if err != nil {
				return fmt.Errorf("scope %s: %w", scope.URI, err)
			}
			if err := own.AppendRequirement(providers, require.Provider, require.Rule, methods); err != nil {
				return fmt.Errorf("scope %s: %w", scope.URI, err)
			}
		}

		effective := authorization.MergeChains(parent, own)
		i.entries = append(i.entries, ScopeEntry{URI: scope.URI, Chain: effective})

		if err := i.build(scope.Scopes, effective, providers); err != nil {
			return err
		}
	}

	return nil
}

// Match returns the chain of the most specific scope covering the path. A
// false return means no scope covers the path at all.
func (i *ScopeIndex) Match(path string) (*authorization.Chain, bool) {
	for _, entry := range i.entries {
		if matchURI(entry.URI, path) {
			return entry.Chain, true
		}
	}
	return nil, false
}

// Entries exposes the resolved scopes, longest prefix first.
func (i *ScopeIndex) Entries() []ScopeEntry {
	return i.entries
}

func matchURI(uri, path string) bool {
	if uri == "/" {
		return true
	}
	if wildcard, found := strings.CutSuffix(uri, "*"); found {
		return strings.HasPrefix(path, wildcard)
	}
	return path == uri || strings.HasPrefix(path, uri+"/")
}
