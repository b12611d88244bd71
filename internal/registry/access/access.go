// Package access holds the authorization strategies that guard registry and
// relation mutations. Policies are not safe for concurrent use on their own;
// the component that owns a policy serializes access to it.
package access

import (
	"errors"
	"slices"
	"strings"

	"apeguard/pkg/domain"
	dErrors "apeguard/pkg/domain-errors"
)

// ErrNotAuthorized is wrapped by every rejection so callers can match it with
// errors.Is regardless of the policy that produced it.
var ErrNotAuthorized = errors.New("not authorized")

// Policy is the capability check run before every mutation.
type Policy interface {
	// Name identifies the strategy ("owner" or "gate").
	Name() string
	// IsAuthorized reports whether caller may mutate the guarded component.
	IsAuthorized(caller domain.Address) bool
	// Reject is the error returned when IsAuthorized fails.
	Reject() error
	Owner() domain.Address
	// TransferOwnership hands the owner role to newOwner. Only the current
	// owner may call it.
	TransferOwnership(caller, newOwner domain.Address) error
}

// AllowList is implemented by policies with an explicit set of mutators.
type AllowList interface {
	Allow(caller, identity domain.Address) error
	Disallow(caller, identity domain.Address) error
	IsAllowed(identity domain.Address) bool
	Allowed() []domain.Address
}

// Check runs p against caller.
func Check(p Policy, caller domain.Address) error {
	if p.IsAuthorized(caller) {
		return nil
	}
	return p.Reject()
}

func notOwner() error {
	return dErrors.Wrap(ErrNotAuthorized, dErrors.CodeNotAuthorized, "caller is not the owner")
}

// OwnerPolicy authorizes a single, transferable owner.
type OwnerPolicy struct {
	owner domain.Address
}

// NewOwner creates an owner policy controlled by owner.
func NewOwner(owner domain.Address) *OwnerPolicy {
	return &OwnerPolicy{owner: owner}
}

func (p *OwnerPolicy) Name() string { return "owner" }

func (p *OwnerPolicy) IsAuthorized(caller domain.Address) bool {
	return !caller.IsZero() && caller == p.owner
}

func (p *OwnerPolicy) Reject() error { return notOwner() }

func (p *OwnerPolicy) Owner() domain.Address { return p.owner }

func (p *OwnerPolicy) TransferOwnership(caller, newOwner domain.Address) error {
	if !p.IsAuthorized(caller) {
		return notOwner()
	}
	if newOwner.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "new owner is the zero address")
	}
	p.owner = newOwner
	return nil
}

// GatePolicy authorizes the identities on its allow-list. The owner manages
// the list but is not a mutator unless listed like anyone else.
type GatePolicy struct {
	owner   domain.Address
	allowed map[domain.Address]struct{}
}

// NewGate creates a gate owned by owner whose allow-list starts with the
// given identities. Deployments pass the deployer here so it can seed the
// registry, then hand the gate over with Allow/Disallow.
func NewGate(owner domain.Address, allowed ...domain.Address) *GatePolicy {
	g := &GatePolicy{owner: owner, allowed: make(map[domain.Address]struct{}, len(allowed))}
	for _, id := range allowed {
		if !id.IsZero() {
			g.allowed[id] = struct{}{}
		}
	}
	return g
}

func (g *GatePolicy) Name() string { return "gate" }

func (g *GatePolicy) IsAuthorized(caller domain.Address) bool {
	return g.IsAllowed(caller)
}

func (g *GatePolicy) Reject() error {
	return dErrors.Wrap(ErrNotAuthorized, dErrors.CodeNotAuthorized, "caller is not allowed")
}

func (g *GatePolicy) Owner() domain.Address { return g.owner }

func (g *GatePolicy) TransferOwnership(caller, newOwner domain.Address) error {
	if caller.IsZero() || caller != g.owner {
		return notOwner()
	}
	if newOwner.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "new owner is the zero address")
	}
	g.owner = newOwner
	return nil
}

func (g *GatePolicy) Allow(caller, identity domain.Address) error {
	if caller.IsZero() || caller != g.owner {
		return notOwner()
	}
	if identity.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "cannot allow the zero address")
	}
	g.allowed[identity] = struct{}{}
	return nil
}

func (g *GatePolicy) Disallow(caller, identity domain.Address) error {
	if caller.IsZero() || caller != g.owner {
		return notOwner()
	}
	delete(g.allowed, identity)
	return nil
}

func (g *GatePolicy) IsAllowed(identity domain.Address) bool {
	if identity.IsZero() {
		return false
	}
	_, ok := g.allowed[identity]
	return ok
}

// Allowed returns the allow-list in a stable order.
func (g *GatePolicy) Allowed() []domain.Address {
	out := make([]domain.Address, 0, len(g.allowed))
	for id := range g.allowed {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b domain.Address) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}
