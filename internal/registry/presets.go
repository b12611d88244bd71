package registry

import (
	"apeguard/internal/registry/access"
	"apeguard/internal/registry/keys"
	"apeguard/pkg/domain"
)

// Registry names used by the presets.
const (
	AddressesName        = "addresses"
	ExecutorsName        = "executors"
	TrustedAddressesName = "trusted-addresses"
	ProtocolsName        = "protocols"
	StringsName          = "strings"
	TrustedDomainsName   = "trusted-domains"
	DomainNamesName      = "domain-names"
)

// Relation names used by the presets.
const (
	ProtocolExecutorName     = "protocol-executor"
	AddressesToStringsName   = "addresses-strings"
	ProtocolsAddressesName   = "protocols-addresses"
	ProtocolsDomainNamesName = "protocols-domain-names"
)

// Gate registries start with the deployer on their allow-list so it can
// populate them before handing them over.

func NewAddressesRegistry(deployer domain.Address) *Registry[domain.Address] {
	return New(AddressesName, keys.Addresses{}, access.NewGate(deployer, deployer))
}

func NewExecutorsRegistry(deployer domain.Address) *Registry[domain.Address] {
	return New(ExecutorsName, keys.Addresses{}, access.NewOwner(deployer))
}

func NewTrustedAddressesRegistry(deployer domain.Address) *Registry[domain.Address] {
	return New(TrustedAddressesName, keys.Addresses{}, access.NewOwner(deployer))
}

func NewProtocolsRegistry(deployer domain.Address) *Registry[string] {
	return New(ProtocolsName, keys.CaseFold{}, access.NewOwner(deployer))
}

// NewStringsRegistry creates a case-insensitive gate registry. Keys are
// always unique under case folding.
func NewStringsRegistry(name string, deployer domain.Address) *Registry[string] {
	if name == "" {
		name = StringsName
	}
	return New(name, keys.CaseFold{}, access.NewGate(deployer, deployer))
}

func NewTrustedDomainsRegistry(deployer domain.Address) *Registry[string] {
	return New(TrustedDomainsName, keys.DomainName{}, access.NewOwner(deployer))
}

func NewDomainNamesRegistry(deployer domain.Address) *Registry[string] {
	return New(DomainNamesName, keys.DomainName{}, access.NewGate(deployer, deployer))
}

// NewProtocolExecutor links executors (auto-managed) to protocols.
func NewProtocolExecutor(deployer domain.Address, executors *Registry[domain.Address], protocols *Registry[string], opts ...RelationOption) *Relation[domain.Address, string] {
	return NewRelation(ProtocolExecutorName, deployer,
		Side[domain.Address]{Registry: executors, Lifecycle: AutoManaged},
		Side[string]{Registry: protocols, Lifecycle: Required},
		opts...)
}

// NewAddressesToStrings links addresses (auto-managed) to string identifiers.
func NewAddressesToStrings(deployer domain.Address, addresses *Registry[domain.Address], strings *Registry[string], opts ...RelationOption) *Relation[domain.Address, string] {
	return NewRelation(AddressesToStringsName, deployer,
		Side[domain.Address]{Registry: addresses, Lifecycle: AutoManaged},
		Side[string]{Registry: strings, Lifecycle: Required},
		opts...)
}

// NewProtocolsAddresses links addresses (auto-managed) to protocols.
func NewProtocolsAddresses(deployer domain.Address, addresses *Registry[domain.Address], protocols *Registry[string], opts ...RelationOption) *Relation[domain.Address, string] {
	return NewRelation(ProtocolsAddressesName, deployer,
		Side[domain.Address]{Registry: addresses, Lifecycle: AutoManaged},
		Side[string]{Registry: protocols, Lifecycle: Required},
		opts...)
}

// NewProtocolsDomainNames links domain names to protocols. Both must be
// registered beforehand.
func NewProtocolsDomainNames(deployer domain.Address, domainNames *Registry[string], protocols *Registry[string], opts ...RelationOption) *Relation[string, string] {
	return NewRelation(ProtocolsDomainNamesName, deployer,
		Side[string]{Registry: domainNames, Lifecycle: Required},
		Side[string]{Registry: protocols, Lifecycle: Required},
		opts...)
}
