package trace

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func sampleEvent(count uint64, root int32, rank int) Event {
	return Event{
		Time:       time.Now().UTC(),
		Op:         "ncclBroadcast",
		Count:      count,
		Datatype:   7,
		Root:       root,
		Rank:       rank,
		DurationUS: 120,
		Status:     0,
	}
}

func TestWriteThenRead(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	want := []Event{sampleEvent(1024, 0, 0), sampleEvent(2048, 1, 0)}
	for _, ev := range want {
		if err := w.Record(ev); err != nil {
			t.Fatalf("Failed to record event: %v", err)
		}
	}

	got, err := ReadAll(&buf)
	if err != nil {
		t.Fatalf("Failed to read events: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Count != want[i].Count || got[i].Root != want[i].Root || got[i].Op != want[i].Op {
			t.Errorf("Event %d mismatch: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReadAllToleratesTruncatedTail(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Record(sampleEvent(64, 0, 0)); err != nil {
		t.Fatalf("Failed to record event: %v", err)
	}
	// Simulate a workload killed mid-write
	buf.WriteString(`{"time":"2026-01-01T00:00:00Z","op":"ncclBro`)

	events, err := ReadAll(&buf)
	if err != nil {
		t.Fatalf("Expected truncated tail to be tolerated, got %v", err)
	}
	if len(events) != 1 {
		t.Errorf("Expected 1 complete event, got %d", len(events))
	}
}

func TestReadAllReportsMidStreamCorruption(t *testing.T) {
	input := `{"op":"ncclBroadcast","count":1}
not json at all
{"op":"ncclBroadcast","count":2}
`
	_, err := ReadAll(strings.NewReader(input))
	if err == nil {
		t.Fatal("Expected error for corruption followed by more events")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("Expected line number in error, got %v", err)
	}
}

func TestFileWriterPerRank(t *testing.T) {
	dir := t.TempDir()

	for rank := 0; rank < 2; rank++ {
		w, err := NewFileWriter(dir, rank)
		if err != nil {
			t.Fatalf("Failed to create writer for rank %d: %v", rank, err)
		}
		if err := w.Record(sampleEvent(512, 0, rank)); err != nil {
			t.Fatalf("Failed to record: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Failed to close: %v", err)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "rank-0.trace.jsonl")); err != nil {
		t.Errorf("Expected rank-0 trace file: %v", err)
	}

	events, err := ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read trace dir: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events across ranks, got %d", len(events))
	}
}

func TestFileWriterAppends(t *testing.T) {
	dir := t.TempDir()

	for i := 0; i < 2; i++ {
		w, err := NewFileWriter(dir, 0)
		if err != nil {
			t.Fatalf("Failed to open writer: %v", err)
		}
		if err := w.Record(sampleEvent(uint64(i+1), 0, 0)); err != nil {
			t.Fatalf("Failed to record: %v", err)
		}
		w.Close()
	}

	events, err := ReadFile(filepath.Join(dir, RankFileName(0)))
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("Expected appended events to accumulate, got %d", len(events))
	}
}

func TestWriterConcurrentRecords(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			w.Record(sampleEvent(uint64(n), 0, 0))
		}(i)
	}
	wg.Wait()

	events, err := ReadAll(&buf)
	if err != nil {
		t.Fatalf("Concurrent records produced unreadable stream: %v", err)
	}
	if len(events) != 16 {
		t.Errorf("Expected 16 events, got %d", len(events))
	}
}

func TestSummarize(t *testing.T) {
	events := []Event{
		{Op: "ncclBroadcast", Count: 1024, Root: 0, DurationUS: 100},
		{Op: "ncclBroadcast", Count: 2048, Root: 0, DurationUS: 300},
		{Op: "ncclBroadcast", Count: 512, Root: 1, DurationUS: 200, Status: 2},
	}

	s := Summarize(events)
	if s.Calls != 3 {
		t.Errorf("Expected 3 calls, got %d", s.Calls)
	}
	if s.Failures != 1 {
		t.Errorf("Expected 1 failure, got %d", s.Failures)
	}
	if s.TotalElements != 3584 {
		t.Errorf("Expected 3584 total elements, got %d", s.TotalElements)
	}
	if s.CallsByRoot[0] != 2 || s.CallsByRoot[1] != 1 {
		t.Errorf("Unexpected per-root counts: %v", s.CallsByRoot)
	}
	if s.MinDurationUS != 100 || s.MaxDurationUS != 300 || s.AvgDurationUS != 200 {
		t.Errorf("Unexpected duration stats: min=%d max=%d avg=%d", s.MinDurationUS, s.MaxDurationUS, s.AvgDurationUS)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Calls != 0 || s.AvgDurationUS != 0 {
		t.Errorf("Expected zero summary for no events, got %+v", s)
	}
}
