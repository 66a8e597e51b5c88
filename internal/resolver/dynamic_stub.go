//go:build !linux || !cgo

package resolver

// Default returns the resolver used outside of tests. Without cgo there
// is no dynamic loader access, so every resolution reports a load failure.
func Default() Resolver {
	return unavailable{}
}

type unavailable struct{}

func (unavailable) Resolve(library, symbol string) (Symbol, error) {
	return 0, &LoadError{Library: library, Detail: "dynamic loading unavailable on this platform"}
}
