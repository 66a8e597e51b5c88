package launch

import "time"

// Result is the immutable record of one wrapped workload run.
type Result struct {
	Command  []string `json:"command"`
	PID      int      `json:"pid"`
	ExitCode int      `json:"exit_code"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration_seconds"`

	ShimPath string `json:"shim_path"`
	TraceDir string `json:"trace_dir,omitempty"`
}

func newResult(command []string, pid, exitCode int, start, end time.Time, opts Options) *Result {
	return &Result{
		Command:   command,
		PID:       pid,
		ExitCode:  exitCode,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start).Seconds(),
		ShimPath:  opts.ShimPath,
		TraceDir:  opts.TraceDir,
	}
}

// Succeeded reports whether the workload exited cleanly.
func (r *Result) Succeeded() bool {
	return r.ExitCode == 0
}
