package registry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"apeguard/internal/registry/access"
	"apeguard/internal/registry/keys"
	"apeguard/pkg/domain"
	dErrors "apeguard/pkg/domain-errors"
	"apeguard/pkg/requestcontext"
)

type RegistrySuite struct {
	suite.Suite
	owner    domain.Address
	stranger domain.Address
	ctx      context.Context
}

func (s *RegistrySuite) SetupTest() {
	s.owner = domain.NewAddress()
	s.stranger = domain.NewAddress()
	s.ctx = requestcontext.WithCaller(context.Background(), s.owner)
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) as(caller domain.Address) context.Context {
	return requestcontext.WithCaller(context.Background(), caller)
}

// requireConsistent checks that positions and membership agree for every key.
func requireConsistent[K any](s *RegistrySuite, r *Registry[K]) {
	items := r.Items()
	s.Require().Equal(len(items), r.Size())
	s.Require().Equal(len(items), len(r.index.position))
	for i, k := range items {
		id, ok := r.GetID(k)
		s.Require().True(ok)
		s.Require().Equal(i, id)
		got, err := r.GetByID(id)
		s.Require().NoError(err)
		s.Require().Equal(k, got)
	}
}

func (s *RegistrySuite) TestAdd() {
	s.Run("assigns dense positions in insertion order", func() {
		r := NewProtocolsRegistry(s.owner)
		for i, name := range []string{"AAVE", "UniSwap", "Compound", "SushiSwap"} {
			idx, err := r.Add(s.ctx, name)
			s.Require().NoError(err)
			s.Equal(i, idx)
		}
		s.Equal(4, r.Size())
		s.Equal([]string{"AAVE", "UniSwap", "Compound", "SushiSwap"}, r.Items())
		requireConsistent(s, r)
	})

	s.Run("rejects duplicates under the key policy", func() {
		r := NewProtocolsRegistry(s.owner)
		_, err := r.Add(s.ctx, "AAVE")
		s.Require().NoError(err)

		_, err = r.Add(s.ctx, "aave")
		s.ErrorIs(err, ErrDuplicateKey)
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateKey))
		s.Equal(1, r.Size())
	})

	s.Run("exact registries keep distinct byte strings apart", func() {
		r := New("exact", keys.Exact{}, access.NewOwner(s.owner))
		_, err := r.Add(s.ctx, "AAVE")
		s.Require().NoError(err)
		_, err = r.Add(s.ctx, "aave")
		s.Require().NoError(err)
		s.True(r.Contains("AAVE"))
		s.False(r.Contains("Aave"))
	})

	s.Run("address registries compare identities", func() {
		r := NewExecutorsRegistry(s.owner)
		exec := domain.NewAddress()
		_, err := r.Add(s.ctx, exec)
		s.Require().NoError(err)
		_, err = r.Add(s.ctx, exec)
		s.ErrorIs(err, ErrDuplicateKey)
		s.True(r.Contains(exec))
		s.False(r.Contains(s.stranger))
	})
}

func (s *RegistrySuite) TestCaseFold() {
	r := NewStringsRegistry("", s.owner)
	_, err := r.Add(s.ctx, "AAVE")
	s.Require().NoError(err)

	for _, variant := range []string{"AAVE", "aave", "aAve", "aAvE"} {
		s.True(r.Contains(variant), variant)
		id, ok := r.GetID(variant)
		s.True(ok)
		s.Equal(0, id)
	}

	_, err = r.Add(s.ctx, "aave")
	s.ErrorIs(err, ErrDuplicateKey)

	stored, err := r.GetByID(0)
	s.Require().NoError(err)
	s.Equal("AAVE", stored, "original casing is preserved")

	s.Require().NoError(r.Remove(s.ctx, "aAvE"))
	s.False(r.Contains("AAVE"))
	s.Equal(0, r.Size())
}

func (s *RegistrySuite) TestDomainNames() {
	s.Run("accepts well-formed names case-insensitively", func() {
		r := NewTrustedDomainsRegistry(s.owner)
		_, err := r.Add(s.ctx, "Domain1.com")
		s.Require().NoError(err)
		s.True(r.Contains("domain1.COM"))
		_, err = r.Add(s.ctx, "DOMAIN1.com")
		s.ErrorIs(err, ErrDuplicateKey)
	})

	s.Run("rejects malformed names without changing size", func() {
		r := NewDomainNamesRegistry(s.owner)
		bad := []string{
			"not-a-domain-name",
			"bad_domain_name.fr",
			"not-a-good-@-name.fr",
			"notgud4adomainname..gg",
			"-notgud4adomainname.gg",
			strings.Repeat("a", keys.MaxDomainNameLength) + ".com",
		}
		for _, name := range bad {
			_, err := r.Add(s.ctx, name)
			s.ErrorIs(err, ErrInvalidKey, name)
			s.ErrorIs(err, keys.ErrInvalidDomainName, name)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidKey), name)
		}
		s.Equal(0, r.Size())
	})
}

func (s *RegistrySuite) TestRemove() {
	s.Run("removing a middle key moves the last key into its slot", func() {
		r := NewProtocolsRegistry(s.owner)
		for _, name := range []string{"AAVE", "UniSwap", "Compound", "SushiSwap"} {
			_, err := r.Add(s.ctx, name)
			s.Require().NoError(err)
		}

		s.Require().NoError(r.Remove(s.ctx, "uniswap"))
		s.Equal([]string{"AAVE", "SushiSwap", "Compound"}, r.Items())
		id, ok := r.GetID("SushiSwap")
		s.True(ok)
		s.Equal(1, id)
		requireConsistent(s, r)
	})

	s.Run("removing the last key relocates nothing", func() {
		r := NewProtocolsRegistry(s.owner)
		for _, name := range []string{"AAVE", "UniSwap", "Compound"} {
			_, err := r.Add(s.ctx, name)
			s.Require().NoError(err)
		}

		s.Require().NoError(r.Remove(s.ctx, "Compound"))
		s.Equal([]string{"AAVE", "UniSwap"}, r.Items())
		requireConsistent(s, r)
	})

	s.Run("absent keys are reported", func() {
		r := NewProtocolsRegistry(s.owner)
		err := r.Remove(s.ctx, "ParaSwap")
		s.ErrorIs(err, ErrKeyNotFound)
		s.True(dErrors.HasCode(err, dErrors.CodeKeyNotFound))
	})
}

func (s *RegistrySuite) TestLookups() {
	r := NewProtocolsRegistry(s.owner)
	_, err := r.Add(s.ctx, "AAVE")
	s.Require().NoError(err)

	_, err = r.GetByID(1)
	s.ErrorIs(err, ErrIndexOutOfBounds)
	s.True(dErrors.HasCode(err, dErrors.CodeIndexOutOfBounds))
	_, err = r.GetByID(-1)
	s.ErrorIs(err, ErrIndexOutOfBounds)

	id, ok := r.GetID("Compound")
	s.False(ok)
	s.Equal(0, id)
}

func (s *RegistrySuite) TestOwnerAccess() {
	r := NewExecutorsRegistry(s.owner)

	_, err := r.Add(s.as(s.stranger), domain.NewAddress())
	s.ErrorIs(err, ErrNotAuthorized)
	s.Contains(err.Error(), "caller is not the owner")

	err = r.TransferOwnership(s.as(s.stranger), s.stranger)
	s.ErrorIs(err, ErrNotAuthorized)

	s.Require().NoError(r.TransferOwnership(s.ctx, s.stranger))
	s.Equal(s.stranger, r.Owner())

	_, err = r.Add(s.ctx, domain.NewAddress())
	s.ErrorIs(err, ErrNotAuthorized)
	_, err = r.Add(s.as(s.stranger), domain.NewAddress())
	s.NoError(err)

	err = r.AllowCaller(s.as(s.stranger), s.owner)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	_, ok := r.AllowedCallers()
	s.False(ok)
}

func (s *RegistrySuite) TestGateAccess() {
	s.Run("owner must be allow-listed to mutate", func() {
		r := New("gate", keys.CaseFold{}, access.NewGate(s.owner))
		_, err := r.Add(s.ctx, "AAVE")
		s.ErrorIs(err, ErrNotAuthorized)
		s.Contains(err.Error(), "caller is not allowed")

		s.Require().NoError(r.AllowCaller(s.ctx, s.owner))
		_, err = r.Add(s.ctx, "AAVE")
		s.NoError(err)
	})

	s.Run("handover to a timelock locks the deployer out", func() {
		timelock := domain.NewAddress()
		r := NewStringsRegistry("", s.owner)
		_, err := r.Add(s.ctx, "AAVE")
		s.Require().NoError(err)

		s.Require().NoError(r.AllowCaller(s.ctx, timelock))
		s.Require().NoError(r.DisallowCaller(s.ctx, s.owner))

		_, err = r.Add(s.ctx, "UniSwap")
		s.ErrorIs(err, ErrNotAuthorized)
		err = r.Remove(s.ctx, "AAVE")
		s.ErrorIs(err, ErrNotAuthorized)

		_, err = r.Add(s.as(timelock), "UniSwap")
		s.NoError(err)
		allowed, ok := r.AllowedCallers()
		s.True(ok)
		s.Equal([]domain.Address{timelock}, allowed)
	})

	s.Run("only the owner manages the allow-list", func() {
		r := NewStringsRegistry("", s.owner)
		err := r.AllowCaller(s.as(s.stranger), s.stranger)
		s.ErrorIs(err, ErrNotAuthorized)
		s.Contains(err.Error(), "caller is not the owner")
	})
}

func (s *RegistrySuite) TestHandOver() {
	s.Run("owner registries transfer ownership", func() {
		r := NewExecutorsRegistry(s.owner)
		s.Require().NoError(r.HandOver(s.ctx, s.stranger))
		s.Equal(s.stranger, r.Owner())
	})

	s.Run("gate registries swap the allow-list entry and its owner", func() {
		r := NewAddressesRegistry(s.owner)
		s.Require().NoError(r.HandOver(s.ctx, s.stranger))
		allowed, _ := r.AllowedCallers()
		s.Equal([]domain.Address{s.stranger}, allowed)
		s.Equal(s.stranger, r.Owner())
		s.ErrorIs(r.AllowCaller(s.ctx, s.owner), ErrNotAuthorized)
	})

	s.Run("non-owners cannot hand over", func() {
		r := NewAddressesRegistry(s.owner)
		s.ErrorIs(r.HandOver(s.as(s.stranger), s.stranger), ErrNotAuthorized)
	})
}

func (s *RegistrySuite) TestSeed() {
	s.Run("restores items without authorization", func() {
		r := NewStringsRegistry("", s.owner)
		s.Require().NoError(r.Seed([]string{"AAVE", "UniSwap"}))
		s.Equal([]string{"AAVE", "UniSwap"}, r.Items())
	})

	s.Run("is all or nothing", func() {
		r := NewDomainNamesRegistry(s.owner)
		err := r.Seed([]string{"domain1.com", "domain2.fr", "DOMAIN1.com"})
		s.ErrorIs(err, ErrDuplicateKey)
		s.Equal(0, r.Size())
		s.False(r.Contains("domain2.fr"))
	})
}

func (s *RegistrySuite) TestCancelledContext() {
	r := NewProtocolsRegistry(s.owner)
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := r.Add(ctx, "AAVE")
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	s.Equal(0, r.Size())
}
