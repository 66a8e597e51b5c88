package main

/*
#include <stddef.h>

typedef int (*ncclspyBroadcastFn)(const void*, void*, size_t, int, int, void*, void*);

// Trampoline from a resolved symbol address to a real C call. Lives in
// this file because a cgo file containing //export may not define
// C functions in its preamble.
static int ncclspyCallBroadcast(void *fn, const void *sendbuff, void *recvbuff,
		size_t count, int datatype, int root, void *comm, void *stream) {
	return ((ncclspyBroadcastFn)fn)(sendbuff, recvbuff, count, datatype, root, comm, stream);
}
*/
import "C"

import (
	"unsafe"

	"github.com/ncclspy/ncclspy/internal/interpose"
	"github.com/ncclspy/ncclspy/internal/resolver"
	"github.com/ncclspy/ncclspy/internal/shim"
)

// active is assembled when the dynamic linker loads the library and runs
// the Go runtime initializers.
var active = shim.Bootstrap(resolver.Default(), forwardBroadcast)

// forwardBroadcast calls the genuine implementation. The uintptr values
// are C pointers owned by the caller, never Go memory, so converting
// them back to unsafe.Pointer is sound.
func forwardBroadcast(fn resolver.Symbol, a interpose.BroadcastArgs) interpose.Status {
	r := C.ncclspyCallBroadcast(
		unsafe.Pointer(uintptr(fn)),
		unsafe.Pointer(a.SendBuff),
		unsafe.Pointer(a.RecvBuff),
		C.size_t(a.Count),
		C.int(a.Datatype),
		C.int(a.Root),
		unsafe.Pointer(a.Comm),
		unsafe.Pointer(a.Stream),
	)
	return interpose.Status(r)
}
