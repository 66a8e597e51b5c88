package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// ReadAll decodes every event from r. A malformed trailing line (a
// workload killed mid-write) ends the stream without an error; malformed
// lines elsewhere are reported.
func ReadAll(r io.Reader) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	var pendingErr error
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if pendingErr != nil {
			// A bad line followed by more data is corruption, not truncation.
			return events, pendingErr
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			pendingErr = fmt.Errorf("malformed trace event at line %d: %w", lineNo, err)
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return events, err
	}
	return events, nil
}

// ReadFile decodes every event from a trace file.
func ReadFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer f.Close()
	return ReadAll(f)
}

// ReadDir decodes events from every per-rank trace file in dir, ordered
// by time across ranks.
func ReadDir(dir string) ([]Event, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "rank-*.trace.jsonl"))
	if err != nil {
		return nil, err
	}
	var events []Event
	for _, path := range paths {
		evs, err := ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		events = append(events, evs...)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Time.Before(events[j].Time) })
	return events, nil
}
