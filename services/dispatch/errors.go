package dispatch

import (
	"errors"
	"fmt"

	"github.com/modelmux/modelmux/services/catalog"
)

// UnresolvedModelError is returned when the requested model identifier
// matches no backend in the catalog. Raised before any client call; the
// caller recovers by choosing a valid identifier.
type UnresolvedModelError struct {
	Model string
}

func (e *UnresolvedModelError) Error() string {
	return fmt.Sprintf("model %q is not supported", e.Model)
}

// UnsupportedBackendError is returned when the catalog resolves a model
// to a backend absent from the live-client table. It signals a
// catalog/client wiring bug and should not occur in correct deployments.
type UnsupportedBackendError struct {
	Backend catalog.Backend
}

func (e *UnsupportedBackendError) Error() string {
	return fmt.Sprintf("backend %q is not supported", e.Backend)
}

// IsUnresolvedModel reports whether err is an UnresolvedModelError.
func IsUnresolvedModel(err error) bool {
	var target *UnresolvedModelError
	return errors.As(err, &target)
}

// IsUnsupportedBackend reports whether err is an UnsupportedBackendError.
func IsUnsupportedBackend(err error) bool {
	var target *UnsupportedBackendError
	return errors.As(err, &target)
}

// IsResolutionError reports whether err is one of the two failure kinds
// this package introduces. Everything else surfaced by a dispatch
// originates in the delegated backend client.
func IsResolutionError(err error) bool {
	return IsUnresolvedModel(err) || IsUnsupportedBackend(err)
}
