package shim

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ncclspy/ncclspy/internal/interpose"
	"github.com/ncclspy/ncclspy/internal/resolver"
	"github.com/ncclspy/ncclspy/internal/shimconfig"
	"github.com/ncclspy/ncclspy/internal/trace"
)

type fakeResolver struct {
	sym resolver.Symbol
	err error
}

func (r fakeResolver) Resolve(library, symbol string) (resolver.Symbol, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.sym, nil
}

func passthrough(status interpose.Status) interpose.Forwarder {
	return func(fn resolver.Symbol, args interpose.BroadcastArgs) interpose.Status {
		return status
	}
}

func clearShimEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		shimconfig.EnvConfig, shimconfig.EnvLibrary, shimconfig.EnvTraceDir,
		shimconfig.EnvMetricsAddr, shimconfig.EnvLogLevel, shimconfig.EnvLogJSON,
		shimconfig.EnvRank, "RANK", "OMPI_COMM_WORLD_RANK", "SLURM_PROCID",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestBootstrapMinimal(t *testing.T) {
	clearShimEnv(t)

	s := Bootstrap(fakeResolver{sym: 0xbeef}, passthrough(interpose.StatusSuccess))
	if s.Interposer == nil {
		t.Fatal("Expected an interposer")
	}
	if status := s.Interposer.Broadcast(interpose.BroadcastArgs{Count: 16}); status != interpose.StatusSuccess {
		t.Errorf("Expected passthrough success, got %d", status)
	}
}

func TestBootstrapWithTraceRecording(t *testing.T) {
	clearShimEnv(t)
	dir := t.TempDir()
	t.Setenv(shimconfig.EnvTraceDir, dir)
	t.Setenv(shimconfig.EnvRank, "2")

	s := Bootstrap(fakeResolver{sym: 0xbeef}, passthrough(interpose.StatusSuccess))
	s.Interposer.Broadcast(interpose.BroadcastArgs{Count: 1024, Root: 1, Datatype: 7})
	s.Close()

	events, err := trace.ReadFile(filepath.Join(dir, trace.RankFileName(2)))
	if err != nil {
		t.Fatalf("Failed to read recorded trace: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected one recorded event, got %d", len(events))
	}
	ev := events[0]
	if ev.Op != BroadcastSymbol || ev.Count != 1024 || ev.Root != 1 || ev.Rank != 2 {
		t.Errorf("Recorded event mismatch: %+v", ev)
	}
	if time.Since(ev.Time) > time.Minute {
		t.Errorf("Event timestamp looks wrong: %v", ev.Time)
	}
}

func TestBootstrapTraceFailureDoesNotBreakInterception(t *testing.T) {
	clearShimEnv(t)
	// A file path that cannot be a directory
	bad := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(bad, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(shimconfig.EnvTraceDir, filepath.Join(bad, "traces"))

	s := Bootstrap(fakeResolver{sym: 0xbeef}, passthrough(interpose.StatusSuccess))
	if status := s.Interposer.Broadcast(interpose.BroadcastArgs{Count: 8}); status != interpose.StatusSuccess {
		t.Errorf("Expected interception to work without tracing, got %d", status)
	}
}

func TestFailureReasonMapping(t *testing.T) {
	if got := failureReason(&resolver.LoadError{Library: "l", Detail: "d"}); got != "load" {
		t.Errorf("Expected 'load', got %q", got)
	}
	if got := failureReason(&resolver.LookupError{Library: "l", Symbol: "s"}); got != "lookup" {
		t.Errorf("Expected 'lookup', got %q", got)
	}
}

func TestBootstrapLibraryOverride(t *testing.T) {
	clearShimEnv(t)
	t.Setenv(shimconfig.EnvLibrary, "libnccl-custom.so")

	var seenLibrary string
	res := recordingResolver{library: &seenLibrary}
	s := Bootstrap(res, passthrough(interpose.StatusSuccess))
	s.Interposer.Broadcast(interpose.BroadcastArgs{})

	if seenLibrary != "libnccl-custom.so" {
		t.Errorf("Expected library override to reach the resolver, got %q", seenLibrary)
	}
}

type recordingResolver struct {
	library *string
}

func (r recordingResolver) Resolve(library, symbol string) (resolver.Symbol, error) {
	*r.library = library
	return 0xbeef, nil
}
