// Package resolver locates symbols in shared libraries at runtime.
//
// The production implementation opens the library with lazy binding and
// keeps the handle for the lifetime of the process. Closing it would
// invalidate any resolved addresses still held by callers.
package resolver

import "fmt"

// Symbol is the address of a resolved function.
type Symbol uintptr

// Resolver resolves a named symbol from a shared library.
// Implementations must fail soft: a resolution failure is reported
// through the error, never by aborting the process.
type Resolver interface {
	Resolve(library, symbol string) (Symbol, error)
}

// LoadError means the shared library could not be opened.
type LoadError struct {
	Library string
	Detail  string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %s", e.Library, e.Detail)
}

// LookupError means the library opened but the symbol is absent.
type LookupError struct {
	Library string
	Symbol  string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("symbol %s not found in %s", e.Symbol, e.Library)
}
