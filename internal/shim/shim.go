// Package shim assembles the preloaded interposer from its environment:
// configuration, diagnostics, optional trace recording, and optional
// metrics. The cgo entry point stays a thin adapter over this package.
package shim

import (
	"context"
	"errors"
	"time"

	"github.com/ncclspy/ncclspy/internal/interpose"
	"github.com/ncclspy/ncclspy/internal/metrics"
	"github.com/ncclspy/ncclspy/internal/resolver"
	"github.com/ncclspy/ncclspy/internal/shimconfig"
	"github.com/ncclspy/ncclspy/internal/trace"
	"github.com/ncclspy/ncclspy/pkg/logging"
)

// BroadcastSymbol is the one symbol this shim interposes.
const BroadcastSymbol = "ncclBroadcast"

// Shim is the assembled interception runtime for one process.
type Shim struct {
	Interposer *interpose.Interposer

	log         *logging.Logger
	traceWriter *trace.Writer
	server      *metrics.Server
}

// Bootstrap builds the shim from NCCLSPY_* environment settings.
// It never fails: every optional feature that cannot start is logged
// and skipped, leaving plain interception in place.
func Bootstrap(res resolver.Resolver, forward interpose.Forwarder) *Shim {
	cfg, warnings := shimconfig.FromEnv()

	log := logging.New("ncclshim", logging.ParseLevel(cfg.LogLevel), cfg.LogJSON)
	for _, w := range warnings {
		log.Warnf("%s", w)
	}

	s := &Shim{log: log}
	var observers []interpose.CallObserver

	if cfg.TraceDir != "" {
		w, err := trace.NewFileWriter(cfg.TraceDir, cfg.Rank)
		if err != nil {
			log.Errorf("trace recording disabled: %v", err)
		} else {
			s.traceWriter = w
			observers = append(observers, &traceObserver{writer: w, rank: cfg.Rank, log: log})
			log.Infof("recording %s to %s", trace.RankFileName(cfg.Rank), cfg.TraceDir)
		}
	}

	if cfg.MetricsAddr != "" {
		rec := metrics.NewRecorder()
		observers = append(observers, &metricsObserver{rec: rec})
		s.server = metrics.NewServer(cfg.MetricsAddr, rec)
		errs := s.server.Start()
		go func() {
			if err := <-errs; err != nil {
				log.Errorf("metrics endpoint failed: %v", err)
			}
		}()
		log.Infof("serving metrics on %s", cfg.MetricsAddr)
	}

	var opts []interpose.Option
	if len(observers) > 0 {
		opts = append(opts, interpose.WithObserver(multiObserver(observers)))
	}

	s.Interposer = interpose.New(cfg.Library, BroadcastSymbol, res, forward, log, opts...)
	return s
}

// Close flushes the trace file and stops the metrics endpoint. The
// preloaded library has no reliable unload hook, so in production this
// runs only on orderly teardown; the trace format tolerates truncation.
func (s *Shim) Close() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.log.Warnf("metrics shutdown: %v", err)
		}
	}
	if s.traceWriter != nil {
		return s.traceWriter.Close()
	}
	return nil
}

// traceObserver appends one event per forwarded call. Best effort: a
// write failure is logged once per call and never surfaces.
type traceObserver struct {
	writer *trace.Writer
	rank   int
	log    *logging.Logger
}

func (o *traceObserver) ObserveCall(args interpose.BroadcastArgs, status interpose.Status, d time.Duration) {
	ev := trace.Event{
		Time:       time.Now().UTC(),
		Op:         BroadcastSymbol,
		Count:      args.Count,
		Datatype:   args.Datatype,
		Root:       args.Root,
		Rank:       o.rank,
		DurationUS: d.Microseconds(),
		Status:     int32(status),
	}
	if err := o.writer.Record(ev); err != nil {
		o.log.Warnf("trace record dropped: %v", err)
	}
}

func (o *traceObserver) ObserveResolveFailure(error) {}

// metricsObserver feeds the Prometheus recorder.
type metricsObserver struct {
	rec *metrics.Recorder
}

func (o *metricsObserver) ObserveCall(args interpose.BroadcastArgs, status interpose.Status, d time.Duration) {
	o.rec.RecordCall(BroadcastSymbol, int32(status), args.Count, d)
}

func (o *metricsObserver) ObserveResolveFailure(err error) {
	o.rec.RecordResolveFailure(failureReason(err))
}

func failureReason(err error) string {
	var lookupErr *resolver.LookupError
	if errors.As(err, &lookupErr) {
		return "lookup"
	}
	return "load"
}

// multiObserver fans out to every configured observer.
type multiObserver []interpose.CallObserver

func (m multiObserver) ObserveCall(args interpose.BroadcastArgs, status interpose.Status, d time.Duration) {
	for _, o := range m {
		o.ObserveCall(args, status, d)
	}
}

func (m multiObserver) ObserveResolveFailure(err error) {
	for _, o := range m {
		o.ObserveResolveFailure(err)
	}
}
