package registry

import (
	"errors"
	"fmt"

	"apeguard/internal/registry/access"
	dErrors "apeguard/pkg/domain-errors"
)

// Sentinel errors for registry and relation failures. Every returned error
// wraps exactly one of them and carries the matching dErrors code.
var (
	ErrNotAuthorized    = access.ErrNotAuthorized
	ErrInvalidKey       = errors.New("invalid key")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrKeyNotFound      = errors.New("key not found")
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	ErrNotRegistered    = errors.New("not registered")
	ErrAlreadyLinked    = errors.New("already linked")
	ErrNotLinked        = errors.New("not linked")
	ErrKeyLinked        = errors.New("key still linked")
)

func invalidKey(registry string, key any, cause error) error {
	return dErrors.Wrap(fmt.Errorf("%w: %w", ErrInvalidKey, cause), dErrors.CodeInvalidKey,
		fmt.Sprintf("invalid key %q for %s", fmt.Sprint(key), registry))
}

func duplicateKey(registry string, key any) error {
	return dErrors.Wrap(ErrDuplicateKey, dErrors.CodeDuplicateKey,
		fmt.Sprintf("%v already in %s", key, registry))
}

func keyNotFound(registry string, key any) error {
	return dErrors.Wrap(ErrKeyNotFound, dErrors.CodeKeyNotFound,
		fmt.Sprintf("%v not in %s", key, registry))
}

func indexOutOfBounds(name string, i, size int) error {
	return dErrors.Wrap(ErrIndexOutOfBounds, dErrors.CodeIndexOutOfBounds,
		fmt.Sprintf("index %d out of bounds for %s of size %d", i, name, size))
}

func notRegistered(registry string, key any) error {
	return dErrors.Wrap(ErrNotRegistered, dErrors.CodeNotRegistered,
		fmt.Sprintf("%v is not registered in %s", key, registry))
}

func alreadyLinked(relation string, a, b any) error {
	return dErrors.Wrap(ErrAlreadyLinked, dErrors.CodeAlreadyLinked,
		fmt.Sprintf("%v and %v already linked in %s", a, b, relation))
}

func notLinked(relation string, a, b any) error {
	return dErrors.Wrap(ErrNotLinked, dErrors.CodeNotLinked,
		fmt.Sprintf("%v and %v are not linked in %s", a, b, relation))
}

func keyLinked(registry string, key any) error {
	return dErrors.Wrap(ErrKeyLinked, dErrors.CodeConflict,
		fmt.Sprintf("%v in %s is still linked by a relation", key, registry))
}

func noAllowList(registry string) error {
	return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("%s has no allow-list", registry))
}
