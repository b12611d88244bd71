package main

import (
	"context"
	"fmt"
	"log/slog"

	"apeguard/internal/governance"
	"apeguard/internal/platform/config"
	"apeguard/internal/registry"
	"apeguard/internal/registry/keys"
	"apeguard/internal/registry/service"
	"apeguard/pkg/requestcontext"
)

// deploy creates the preset registries and relations, registers them with
// svc, restores persisted content and hands mutation rights to the
// relations and, when configured, to the timelock. It returns the proposal
// executor, or nil when no proposer is configured.
func deploy(ctx context.Context, cfg config.Config, svc *service.Service, logger *slog.Logger, execOpts ...governance.Option) (*governance.Executor, error) {
	deployer := cfg.DeployerAddress()
	ctx = requestcontext.WithCaller(ctx, deployer)

	addresses := registry.NewAddressesRegistry(deployer)
	executors := registry.NewExecutorsRegistry(deployer)
	trusted := registry.NewTrustedAddressesRegistry(deployer)
	protocols := registry.NewProtocolsRegistry(deployer)
	names := registry.NewStringsRegistry(registry.StringsName, deployer)
	trustedDomains := registry.NewTrustedDomainsRegistry(deployer)
	domainNames := registry.NewDomainNamesRegistry(deployer)

	protocolExecutor := registry.NewProtocolExecutor(deployer, executors, protocols)
	protocolsAddresses := registry.NewProtocolsAddresses(deployer, addresses, protocols)
	protocolsDomains := registry.NewProtocolsDomainNames(deployer, domainNames, protocols)

	for _, err := range []error{
		service.AddRegistry(svc, addresses, keys.AddressCodec{}),
		service.AddRegistry(svc, executors, keys.AddressCodec{}),
		service.AddRegistry(svc, trusted, keys.AddressCodec{}),
		service.AddRegistry(svc, protocols, keys.Strings{}),
		service.AddRegistry(svc, names, keys.Strings{}),
		service.AddRegistry(svc, trustedDomains, keys.Strings{}),
		service.AddRegistry(svc, domainNames, keys.Strings{}),
		service.AddRelation(svc, protocolExecutor, keys.AddressCodec{}, keys.Strings{}),
		service.AddRelation(svc, protocolsAddresses, keys.AddressCodec{}, keys.Strings{}),
		service.AddRelation(svc, protocolsDomains, keys.Strings{}, keys.Strings{}),
	} {
		if err != nil {
			return nil, err
		}
	}

	if err := svc.Restore(ctx); err != nil {
		return nil, err
	}

	// Auto-managed sides are mutated by their relation only.
	if err := svc.HandOver(ctx, registry.ExecutorsName, protocolExecutor.Identity()); err != nil {
		return nil, fmt.Errorf("hand over executors: %w", err)
	}
	if err := svc.HandOver(ctx, registry.AddressesName, protocolsAddresses.Identity()); err != nil {
		return nil, fmt.Errorf("hand over addresses: %w", err)
	}

	timelock, ok := cfg.TimelockAddress()
	if !ok {
		logger.InfoContext(ctx, "no timelock configured, deployer keeps control", "deployer", deployer.String())
		return nil, nil
	}
	for _, name := range []string{registry.StringsName, registry.DomainNamesName} {
		if err := governance.SetupGate(ctx, svc, name, timelock); err != nil {
			return nil, err
		}
	}
	for _, name := range []string{
		registry.TrustedAddressesName,
		registry.ProtocolsName,
		registry.TrustedDomainsName,
		registry.ProtocolExecutorName,
		registry.ProtocolsAddressesName,
		registry.ProtocolsDomainNamesName,
	} {
		if err := svc.TransferOwnership(ctx, name, timelock); err != nil {
			return nil, fmt.Errorf("transfer %s to timelock: %w", name, err)
		}
	}
	logger.InfoContext(ctx, "registries handed to timelock", "timelock", timelock.String())

	proposer, ok := cfg.ProposerAddress()
	if !ok {
		return nil, nil
	}
	execOpts = append([]governance.Option{governance.WithLogger(logger)}, execOpts...)
	return governance.NewExecutor(svc, timelock, proposer, execOpts...), nil
}
