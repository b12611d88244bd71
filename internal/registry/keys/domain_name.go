package keys

import (
	"errors"
	"fmt"
)

// MaxDomainNameLength is the longest accepted domain name; names of 68
// characters or more are rejected.
const MaxDomainNameLength = 67

var (
	ErrInvalidDomainName  = errors.New("invalid domain name")
	errEmptyName          = fmt.Errorf("%w - empty name", ErrInvalidDomainName)
	errNameTooLong        = fmt.Errorf("%w - longer than %d characters", ErrInvalidDomainName, MaxDomainNameLength)
	errUnallowedCharacter = fmt.Errorf("%w - unallowed character", ErrInvalidDomainName)
	errEmptyLabel         = fmt.Errorf("%w - empty label", ErrInvalidDomainName)
	errHyphenEdge         = fmt.Errorf("%w - label starts or ends with '-'", ErrInvalidDomainName)
	errSingleLabel        = fmt.Errorf("%w - missing top-level label", ErrInvalidDomainName)
)

// ValidateDomainName checks the syntax accepted by domain-name registries:
// at least two non-empty dot-separated labels of ASCII letters, digits and
// '-', no label starting or ending with '-', and bounded total length.
// Every returned error wraps ErrInvalidDomainName.
func ValidateDomainName(name string) error {
	if name == "" {
		return errEmptyName
	}
	if len(name) > MaxDomainNameLength {
		return errNameTooLong
	}

	labels := 0
	start := 0
	for i := 0; i <= len(name); i++ {
		if i < len(name) && name[i] != '.' {
			if !isLabelByte(name[i]) {
				return errUnallowedCharacter
			}
			continue
		}
		label := name[start:i]
		if label == "" {
			return errEmptyLabel
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return errHyphenEdge
		}
		labels++
		start = i + 1
	}
	if labels < 2 {
		return errSingleLabel
	}
	return nil
}

func isLabelByte(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '-'
}
