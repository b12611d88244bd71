// Package keys defines the comparison and validation strategies a registry is
// parameterized with. Policies are stateless and safe for concurrent use.
package keys

import (
	"golang.org/x/text/cases"

	"apeguard/pkg/domain"
)

// Policy decides key equality and admissibility for a registry. Two keys are
// equal when their canonical forms are equal; the registry indexes by the
// canonical form and stores the key as given.
type Policy[K any] interface {
	Name() string
	Canonical(key K) string
	Validate(key K) error
}

// Exact compares strings byte for byte.
type Exact struct{}

func (Exact) Name() string { return "exact" }
func (Exact) Canonical(key string) string { return key }
func (Exact) Validate(string) error { return nil }

// Addresses compares identities byte for byte.
type Addresses struct{}

func (Addresses) Name() string { return "address" }
func (Addresses) Canonical(key domain.Address) string { return string(key[:]) }
func (Addresses) Validate(domain.Address) error { return nil }

// CaseFold compares strings case-insensitively. The original casing is kept
// in the registry; only the index uses the folded form.
type CaseFold struct{}

func (CaseFold) Name() string { return "casefold" }

func (CaseFold) Canonical(key string) string {
	// A Caser is stateful, so each call gets its own.
	return cases.Fold().String(key)
}

func (CaseFold) Validate(string) error { return nil }

// DomainName is CaseFold plus domain-name syntax validation on insert.
type DomainName struct {
	CaseFold
}

func (DomainName) Name() string { return "domain" }

func (DomainName) Validate(key string) error {
	return ValidateDomainName(key)
}
