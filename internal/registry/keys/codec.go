package keys

import "apeguard/pkg/domain"

// Codec converts keys to and from their text form at the service boundary.
type Codec[K any] interface {
	Parse(raw string) (K, error)
	Format(key K) string
}

// Strings is the identity codec for string keys.
type Strings struct{}

func (Strings) Parse(raw string) (string, error) { return raw, nil }
func (Strings) Format(key string) string { return key }

// AddressCodec parses "0x"-prefixed hex identities.
type AddressCodec struct{}

func (AddressCodec) Parse(raw string) (domain.Address, error) { return domain.ParseAddress(raw) }
func (AddressCodec) Format(key domain.Address) string { return key.String() }
