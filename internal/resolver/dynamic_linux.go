//go:build linux && cgo

package resolver

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>
*/
import "C"

import "unsafe"

// Dynamic resolves symbols with dlopen/dlsym.
type Dynamic struct{}

// Default returns the resolver used outside of tests.
func Default() Resolver {
	return Dynamic{}
}

// Resolve opens library with lazy binding and looks up symbol.
// The library handle is never closed: resolved addresses must stay
// valid for the rest of the process, and the loader reference-counts
// repeated opens of the same library.
func (Dynamic) Resolve(library, symbol string) (Symbol, error) {
	clib := C.CString(library)
	defer C.free(unsafe.Pointer(clib))

	C.dlerror() // clear any stale error
	handle := C.dlopen(clib, C.RTLD_LAZY)
	if handle == nil {
		return 0, &LoadError{Library: library, Detail: dlerrorString()}
	}

	csym := C.CString(symbol)
	defer C.free(unsafe.Pointer(csym))

	C.dlerror()
	addr := C.dlsym(handle, csym)
	if addr == nil {
		return 0, &LookupError{Library: library, Symbol: symbol}
	}
	return Symbol(uintptr(addr)), nil
}

func dlerrorString() string {
	if msg := C.dlerror(); msg != nil {
		return C.GoString(msg)
	}
	return "unknown dlopen error"
}
