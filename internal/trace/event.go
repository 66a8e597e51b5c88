// Package trace records intercepted collective calls as JSON-lines
// events, one file per rank, and reads them back for inspection.
package trace

import "time"

// Event is one intercepted collective call.
type Event struct {
	Time       time.Time `json:"time"`
	Op         string    `json:"op"`
	Count      uint64    `json:"count"`
	Datatype   int32     `json:"datatype"`
	Root       int32     `json:"root"`
	Rank       int       `json:"rank"`
	DurationUS int64     `json:"duration_us"`
	Status     int32     `json:"status"`
}

// Summary aggregates a set of events.
type Summary struct {
	Calls         int            `json:"calls"`
	Failures      int            `json:"failures"`
	TotalElements uint64         `json:"total_elements"`
	CallsByRoot   map[int32]int  `json:"calls_by_root"`
	CallsByOp     map[string]int `json:"calls_by_op"`
	MinDurationUS int64          `json:"min_duration_us"`
	MaxDurationUS int64          `json:"max_duration_us"`
	AvgDurationUS int64          `json:"avg_duration_us"`
}

// Summarize aggregates events into a Summary.
func Summarize(events []Event) Summary {
	s := Summary{
		CallsByRoot: make(map[int32]int),
		CallsByOp:   make(map[string]int),
	}
	var totalDuration int64
	for i, ev := range events {
		s.Calls++
		if ev.Status != 0 {
			s.Failures++
		}
		s.TotalElements += ev.Count
		s.CallsByRoot[ev.Root]++
		s.CallsByOp[ev.Op]++

		totalDuration += ev.DurationUS
		if i == 0 || ev.DurationUS < s.MinDurationUS {
			s.MinDurationUS = ev.DurationUS
		}
		if ev.DurationUS > s.MaxDurationUS {
			s.MaxDurationUS = ev.DurationUS
		}
	}
	if s.Calls > 0 {
		s.AvgDurationUS = totalDuration / int64(s.Calls)
	}
	return s
}
