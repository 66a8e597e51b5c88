// Package interpose implements the ncclBroadcast interception path: lazy
// resolution of the genuine implementation, a per-call diagnostic, and
// verbatim forwarding of the original arguments.
package interpose

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ncclspy/ncclspy/internal/resolver"
	"github.com/ncclspy/ncclspy/pkg/logging"
)

// Status mirrors ncclResult_t.
type Status int32

const (
	// StatusSuccess is ncclSuccess.
	StatusSuccess Status = 0
	// StatusSystemError is ncclSystemError, the generic error returned
	// when the genuine implementation cannot be resolved.
	StatusSystemError Status = 2
)

// BroadcastArgs carries the raw ncclBroadcast arguments. The interposer
// never reads through the buffer or handle pointers; they are opaque
// pass-through values.
type BroadcastArgs struct {
	SendBuff uintptr
	RecvBuff uintptr
	Count    uint64
	Datatype int32
	Root     int32
	Comm     uintptr
	Stream   uintptr
}

// Forwarder invokes a resolved broadcast implementation with the original
// arguments, positionally unchanged, and returns its result verbatim.
type Forwarder func(fn resolver.Symbol, args BroadcastArgs) Status

// CallObserver receives call outcomes for tracing and metrics. Observers
// must not alter forwarding behavior; they are observational only.
type CallObserver interface {
	ObserveCall(args BroadcastArgs, status Status, d time.Duration)
	ObserveResolveFailure(err error)
}

// Interposer wraps one symbol of the genuine library. The resolved
// address moves one way, unresolved to resolved; a failed resolution is
// not cached, so every later call re-attempts it from scratch.
type Interposer struct {
	library string
	symbol  string
	res     resolver.Resolver
	forward Forwarder
	log     *logging.Logger
	observe CallObserver

	mu sync.Mutex
	fn atomic.Uintptr
}

// Option configures an Interposer.
type Option func(*Interposer)

// WithObserver attaches a call observer.
func WithObserver(o CallObserver) Option {
	return func(ip *Interposer) { ip.observe = o }
}

// New creates an interposer for symbol in library.
func New(library, symbol string, res resolver.Resolver, forward Forwarder, log *logging.Logger, opts ...Option) *Interposer {
	ip := &Interposer{
		library: library,
		symbol:  symbol,
		res:     res,
		forward: forward,
		log:     log,
	}
	for _, opt := range opts {
		opt(ip)
	}
	return ip
}

// Broadcast handles one intercepted ncclBroadcast call.
func (ip *Interposer) Broadcast(args BroadcastArgs) Status {
	fn, err := ip.ensureResolved()
	if err != nil {
		ip.log.Errorf("%s: genuine implementation unavailable, returning system error", ip.symbol)
		if ip.observe != nil {
			ip.observe.ObserveResolveFailure(err)
		}
		return StatusSystemError
	}

	ip.log.Infof("intercepted %s: count=%d, root=%d", ip.symbol, args.Count, args.Root)

	start := time.Now()
	status := ip.forward(fn, args)
	if ip.observe != nil {
		ip.observe.ObserveCall(args, status, time.Since(start))
	}
	return status
}

// ensureResolved returns the genuine implementation, resolving it on
// first use. The fast path is a single atomic load so concurrent calls
// after resolution never contend on the mutex.
func (ip *Interposer) ensureResolved() (resolver.Symbol, error) {
	if fn := ip.fn.Load(); fn != 0 {
		return resolver.Symbol(fn), nil
	}

	ip.mu.Lock()
	defer ip.mu.Unlock()

	if fn := ip.fn.Load(); fn != 0 {
		return resolver.Symbol(fn), nil
	}

	sym, err := ip.res.Resolve(ip.library, ip.symbol)
	if err != nil {
		ip.log.Errorf("%v", err)
		return 0, err
	}
	ip.fn.Store(uintptr(sym))
	return sym, nil
}
