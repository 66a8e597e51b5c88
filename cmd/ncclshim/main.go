// ncclshim is the interposer shared library. Build it with
//
//	go build -buildmode=c-shared -o libncclshim.so ./cmd/ncclshim
//
// and activate it by preloading it ahead of the genuine library
// (ncclspy run does this). It exports ncclBroadcast with the genuine
// signature, so the dynamic linker binds callers to this shim, which
// logs the call and forwards it to libnccl.so.2 unchanged.
package main

/*
#include <stddef.h>
*/
import "C"

import (
	"unsafe"

	"github.com/ncclspy/ncclspy/internal/interpose"
)

//export ncclBroadcast
func ncclBroadcast(sendbuff unsafe.Pointer, recvbuff unsafe.Pointer, count C.size_t, datatype C.int, root C.int, comm unsafe.Pointer, stream unsafe.Pointer) C.int {
	args := interpose.BroadcastArgs{
		SendBuff: uintptr(sendbuff),
		RecvBuff: uintptr(recvbuff),
		Count:    uint64(count),
		Datatype: int32(datatype),
		Root:     int32(root),
		Comm:     uintptr(comm),
		Stream:   uintptr(stream),
	}
	return C.int(active.Interposer.Broadcast(args))
}

func main() {}
