package domain

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "apeguard/pkg/domain-errors"
)

// AddressLength is the byte length of an identity.
const AddressLength = 20

// Address identifies a caller, a registry controller or an address key.
// Invariant: the text form is "0x" followed by 40 lower-case hex digits.
type Address [AddressLength]byte

// ZeroAddress is the unset identity. No policy ever authorizes it.
var ZeroAddress Address

// ParseAddress constructs an Address from external input. The "0x" prefix is
// optional and hex digits are accepted in any case.
//
// Errors: returns CodeInvalidKey when the value is not 40 hex digits.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 2*AddressLength {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidKey, "address must be 40 hex digits")
	}
	var a Address
	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidKey, "address must be 40 hex digits")
	}
	return a, nil
}

// MustAddress is ParseAddress for literals; it panics on malformed input.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// NewAddress returns a random identity, used for relation engines and tests.
func NewAddress() Address {
	var a Address
	if _, err := rand.Read(a[:]); err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Checksum returns the EIP-55 mixed-case text form: each hex letter is
// upper-cased when the matching nibble of keccak256(lower-case hex) is >= 8.
func (a Address) Checksum() string {
	lower := hex.EncodeToString(a[:])
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(out)
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
