package strata

import "errors"

// ErrNoRegistry is returned when a store definition is used without a
// registry, typically before the application has created one.
var ErrNoRegistry = errors.New("strata: no registry")

// ErrRegistryClosed is returned when binding a store or installing a
// plugin against a registry that has been closed.
var ErrRegistryClosed = errors.New("strata: registry closed")

// ErrStoreConflict is returned when two different definitions claim the
// same store id within one registry.
var ErrStoreConflict = errors.New("strata: store id conflict")

// ErrStoreDisposed is returned by operations on a store that has been
// disposed.
var ErrStoreDisposed = errors.New("strata: store disposed")

// ErrStoreUnknown is returned by operations naming a store id that is
// not bound to the registry.
var ErrStoreUnknown = errors.New("strata: unknown store")

// ErrHydrate is returned when a hydration payload cannot be decoded.
var ErrHydrate = errors.New("strata: invalid hydration payload")
